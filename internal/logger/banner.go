package logger

import (
	"fmt"
	"io"
	"strings"
)

const banner = `
           _
  _ __ __| |_      __
 | '__/ _` + "`" + ` \ \ /\ / /
 | | | (_| |\ V  V /
 |_|  \__,_| \_/\_/
`

type StartupInfo struct {
	Version  string
	Addr     string
	Mode     string
	LogLevel string
}

func PrintBanner(w io.Writer, info StartupInfo) {
	fmt.Fprint(w, banner)
	fmt.Fprintf(w, "                    v%s\n", info.Version)
	fmt.Fprintln(w)

	maxWidth := 50
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", maxWidth))
	fmt.Fprintf(w, "  → Address:   http://%s/api/v1\n", formatAddr(info.Addr))
	fmt.Fprintf(w, "  → Auth Mode: %s\n", info.Mode)
	fmt.Fprintf(w, "  → Log Level: %s\n", info.LogLevel)
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", maxWidth))
	fmt.Fprintln(w)
}

func formatAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
