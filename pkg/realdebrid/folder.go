package realdebrid

import (
	"context"
	"net/url"
	"strings"

	"github.com/rclone/rclone/lib/pacer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FolderEntry is one link of a folder. When the folder was resolved exactly
// one of Result and Err is set.
type FolderEntry struct {
	Link   string            `json:"link"`
	Result *UnrestrictResult `json:"result,omitempty"`
	Err    error             `json:"-"`
}

// FolderEntries keeps the order in which Real-Debrid listed the links.
type FolderEntries []FolderEntry

func (f FolderEntries) Links() []string {
	links := make([]string, len(f))
	for i, e := range f {
		links[i] = e.Link
	}
	return links
}

// Results returns the successfully resolved entries, in order.
func (f FolderEntries) Results() []*UnrestrictResult {
	var results []*UnrestrictResult
	for _, e := range f {
		if e.Result != nil {
			results = append(results, e.Result)
		}
	}
	return results
}

// Errors returns the per-link failures keyed by link.
func (f FolderEntries) Errors() map[string]error {
	errs := make(map[string]error)
	for _, e := range f {
		if e.Err != nil {
			errs[e.Link] = e.Err
		}
	}
	return errs
}

// UnrestrictFolder lists the links of a folder. With resolve set every link
// is also unrestricted; a link that fails only sets its entry's Err, the call
// itself fails only when the folder cannot be listed. It needs a premium
// account.
func (c *Client) UnrestrictFolder(ctx context.Context, folderURL string, resolve bool) (FolderEntries, error) {
	if err := validateURL(folderURL); err != nil {
		return nil, err
	}
	if err := c.requirePremium(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("link", folderURL)

	var links []string
	opts := restFormOpts("/unrestrict/folder", form)
	if _, err := c.callJSON(ctx, &opts, &links); err != nil {
		return nil, unrestrictError(err)
	}

	links = folderLinks(folderURL, links)
	if len(links) == 0 {
		return nil, newError(CodeEmptyFolder, "the folder is empty or not supported by Real-Debrid")
	}

	entries := make(FolderEntries, len(links))
	for i, link := range links {
		entries[i].Link = link
	}
	if resolve {
		c.resolveFolder(ctx, entries)
	}
	return entries, nil
}

// folderLinks drops the folder itself, which Real-Debrid may echo back.
func folderLinks(folderURL string, raw []string) []string {
	self := unescape(strings.TrimSpace(folderURL))
	links := make([]string, 0, len(raw))
	for _, link := range raw {
		link = unescape(strings.TrimSpace(link))
		if link == "" || link == self {
			continue
		}
		links = append(links, link)
	}
	return links
}

func (c *Client) resolveFolder(ctx context.Context, entries FolderEntries) {
	p := pacer.New(
		pacer.CalculatorOption(pacer.NewDefault(pacer.MinSleep(c.folderPacing), pacer.MaxSleep(c.folderPacing))),
		pacer.RetriesOption(1),
	)

	var g errgroup.Group
	g.SetLimit(c.folderConcurrency)

	for i := range entries {
		g.Go(func() error {
			e := &entries[i]
			if err := ctx.Err(); err != nil {
				e.Err = translateError(err)
				return nil
			}

			var res *UnrestrictResult
			err := p.Call(func() (bool, error) {
				var err error
				res, err = c.unrestrict(ctx, e.Link, UnrestrictOptions{})
				return false, err
			})
			if err != nil {
				e.Err = err
				return nil
			}
			e.Result = res
			return nil
		})
	}
	_ = g.Wait()

	if failed := len(entries.Errors()); failed > 0 {
		c.log.Debug("folder resolved with failures", zap.Int("links", len(entries)), zap.Int("failed", failed))
	}
}
