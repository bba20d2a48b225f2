package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"rdwrapper/internal/logger"
	"rdwrapper/pkg/realdebrid"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Debrid is the part of *realdebrid.Client the gateway serves.
type Debrid interface {
	AccountInfo(ctx context.Context) (*realdebrid.AccountInfo, error)
	FetchAccountInfo(ctx context.Context) (*realdebrid.AccountInfo, error)
	ServerTime(ctx context.Context) (string, error)
	ServerTimeUnix(ctx context.Context) (int64, error)
	ServerISOTime(ctx context.Context) (string, error)
	ServerISOTimeUnix(ctx context.Context) (int64, error)
	IsURLSupported(ctx context.Context, rawURL, password string) (bool, error)
	UnrestrictLink(ctx context.Context, rawURL string, opts realdebrid.UnrestrictOptions) (*realdebrid.UnrestrictResult, error)
	UnrestrictFolder(ctx context.Context, folderURL string, resolve bool) (realdebrid.FolderEntries, error)
}

var _ Debrid = (*realdebrid.Client)(nil)

type DebridHandler struct {
	rd      Debrid
	breaker *CircuitBreaker
}

func NewDebridHandler(rd Debrid, breaker *CircuitBreaker) *DebridHandler {
	return &DebridHandler{rd: rd, breaker: breaker}
}

func (h *DebridHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/account", h.Account)
	r.Post("/account/refresh", h.RefreshAccount)
	r.Get("/time", h.Time)
	r.Get("/time/iso", h.ISOTime)
	r.Post("/links/check", h.CheckLink)
	r.Post("/links/unrestrict", h.UnrestrictLink)
	r.Post("/folders/unrestrict", h.UnrestrictFolder)
	return r
}

// upstreamFailure reports errors that say something about Real-Debrid's
// health rather than about the request.
func upstreamFailure(err error) bool {
	switch realdebrid.CodeOf(err) {
	case realdebrid.CodeTimeout, realdebrid.CodeNetwork:
		return true
	case realdebrid.CodeRemoteService:
		var rdErr *realdebrid.Error
		return errors.As(err, &rdErr) && rdErr.Retryable()
	}
	return false
}

// call runs fn through the circuit breaker. It writes the error response
// and returns false when fn did not succeed.
func (h *DebridHandler) call(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) error) bool {
	if !h.breaker.Allow() {
		wait := int(math.Ceil(h.breaker.RetryAfter().Seconds()))
		if wait > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(wait))
		}
		sendError(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     fmt.Sprintf("%s is unavailable, circuit %s", h.breaker.Name(), h.breaker.State()),
			Code:      CodeServiceUnavailable,
			Retryable: true,
		})
		return false
	}

	err := fn(r.Context())
	switch {
	case err == nil:
		h.breaker.RecordSuccess()
		return true
	case upstreamFailure(err):
		h.breaker.RecordFailure()
		logger.L.Warn("Real-Debrid call failed",
			zap.String("path", r.URL.Path),
			zap.String("circuit", h.breaker.State().String()),
			zap.Error(err),
		)
	default:
		h.breaker.RecordSuccess()
	}
	sendRDError(w, err)
	return false
}

func unixParam(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("unix")
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func NewAccountResponse(info *realdebrid.AccountInfo) AccountResponse {
	return AccountResponse{
		ID:                             info.ID,
		Username:                       info.Username,
		Email:                          info.Email,
		FidelityPoints:                 info.FidelityPoints,
		LanguageCode:                   info.LanguageCode,
		LanguageName:                   info.LanguageName(),
		AvatarURL:                      info.AvatarURL,
		AccountType:                    info.AccountType(),
		IsPremium:                      info.IsPremium(),
		PremiumSeconds:                 info.PremiumSeconds,
		PremiumPlanExpiration:          info.PremiumPlanExpiration,
		PremiumPlanExpirationTimestamp: info.PremiumPlanExpirationTimestamp(),
	}
}

func (h *DebridHandler) Account(w http.ResponseWriter, r *http.Request) {
	var info *realdebrid.AccountInfo
	ok := h.call(w, r, func(ctx context.Context) (err error) {
		info, err = h.rd.AccountInfo(ctx)
		return err
	})
	if ok {
		sendJSON(w, NewAccountResponse(info))
	}
}

func (h *DebridHandler) RefreshAccount(w http.ResponseWriter, r *http.Request) {
	var info *realdebrid.AccountInfo
	ok := h.call(w, r, func(ctx context.Context) (err error) {
		info, err = h.rd.FetchAccountInfo(ctx)
		return err
	})
	if ok {
		sendJSON(w, NewAccountResponse(info))
	}
}

func (h *DebridHandler) Time(w http.ResponseWriter, r *http.Request) {
	h.serveTime(w, r, h.rd.ServerTime, h.rd.ServerTimeUnix)
}

func (h *DebridHandler) ISOTime(w http.ResponseWriter, r *http.Request) {
	h.serveTime(w, r, h.rd.ServerISOTime, h.rd.ServerISOTimeUnix)
}

func (h *DebridHandler) serveTime(w http.ResponseWriter, r *http.Request,
	text func(context.Context) (string, error), unix func(context.Context) (int64, error)) {
	asUnix, err := unixParam(r)
	if err != nil {
		sendError(w, http.StatusBadRequest, ErrorResponse{Error: "unix must be a boolean", Code: string(realdebrid.CodeValidation)})
		return
	}

	var resp TimeResponse
	ok := h.call(w, r, func(ctx context.Context) (err error) {
		if asUnix {
			var ts int64
			ts, err = unix(ctx)
			resp = UnixTimeResponse(ts)
		} else {
			resp.Time, err = text(ctx)
		}
		return err
	})
	if ok {
		sendJSON(w, resp)
	}
}

func (h *DebridHandler) CheckLink(w http.ResponseWriter, r *http.Request) {
	var req CheckLinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var supported bool
	ok := h.call(w, r, func(ctx context.Context) (err error) {
		supported, err = h.rd.IsURLSupported(ctx, req.URL, req.Password)
		return err
	})
	if ok {
		sendJSON(w, CheckLinkResponse{URL: req.URL, Supported: supported})
	}
}

func (h *DebridHandler) UnrestrictLink(w http.ResponseWriter, r *http.Request) {
	var req UnrestrictLinkRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var res *realdebrid.UnrestrictResult
	ok := h.call(w, r, func(ctx context.Context) (err error) {
		res, err = h.rd.UnrestrictLink(ctx, req.URL, realdebrid.UnrestrictOptions{
			Password:      req.Password,
			RemoteTraffic: req.RemoteTraffic,
		})
		return err
	})
	if ok {
		sendJSON(w, res)
	}
}

func (h *DebridHandler) UnrestrictFolder(w http.ResponseWriter, r *http.Request) {
	var req UnrestrictFolderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var entries realdebrid.FolderEntries
	ok := h.call(w, r, func(ctx context.Context) (err error) {
		entries, err = h.rd.UnrestrictFolder(ctx, req.URL, req.Resolve)
		return err
	})
	if ok {
		sendJSON(w, NewFolderResponse(req.URL, entries))
	}
}

// NewFolderResponse flattens entries, carrying per-link failures as error
// envelopes.
func NewFolderResponse(folderURL string, entries realdebrid.FolderEntries) UnrestrictFolderResponse {
	resp := UnrestrictFolderResponse{
		URL:     folderURL,
		Count:   len(entries),
		Entries: make([]FolderEntryResponse, len(entries)),
	}
	for i, e := range entries {
		resp.Entries[i] = FolderEntryResponse{Link: e.Link, Result: e.Result}
		if e.Err != nil {
			er := NewErrorResponse(e.Err)
			resp.Entries[i].Error = &er
			resp.Failed++
		}
	}
	return resp
}
