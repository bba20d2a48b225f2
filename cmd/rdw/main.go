package main

import (
	"encoding/json"
	"os"

	"rdwrapper/internal/api"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(api.NewErrorResponse(err))
		os.Exit(1)
	}
}
