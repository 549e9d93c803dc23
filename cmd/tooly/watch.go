package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mattjoyce/tooly/internal/api"
	"github.com/mattjoyce/tooly/internal/lock"
	"github.com/mattjoyce/tooly/internal/tui/watch"
)

func runWatch(args []string) int {
	fs, configPath := newFlagSet("watch")
	apiURL := fs.String("api-url", "", "API address (default: the resident instance, else api.listen)")
	apiKey := fs.String("api-key", os.Getenv("TOOLY_API_KEY"), "API bearer token (default: api.api_key)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *apiURL == "" {
		*apiURL = cfg.API.Listen
		if owner, err := lock.ReadOwner(cfg.LockPath()); err == nil && owner.Addr != "" {
			*apiURL = owner.Addr
		}
	}
	if *apiKey == "" {
		*apiKey = cfg.API.APIKey
	}

	if err := watch.Run(context.Background(), api.NewClient(*apiURL, *apiKey)); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}
