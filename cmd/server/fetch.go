package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hazyhaar/framedex/pkg/framedata"
	"github.com/hazyhaar/framedex/pkg/sources"
)

func cmdFetch(args []string) {
	f := newFlags("fetch")
	character := f.fs.String("character", "", "fetch a single character id")
	upstream := f.fs.String("upstream", "", "upstream base URL (overrides config)")
	f.fs.Parse(args)

	cfg := f.load()
	if *upstream != "" {
		cfg.UpstreamURL = *upstream
	}
	logger := cfg.logger()
	if cfg.UpstreamURL == "" {
		fmt.Fprintln(os.Stderr, "fetch: no upstream_url configured")
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fatal(logger, "create data dir", err)
	}

	sdb, err := sources.OpenSourceDB(cfg.sourcesDBPath())
	if err != nil {
		fatal(logger, "open sources db", err)
	}
	defer sdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	fetcher := sources.NewFetcher(sdb, cfg.DataDir, logger)

	// The roster decides which characters exist upstream.
	nickURL := sources.CharacterURL(cfg.UpstreamURL, framedata.NicknamesFile)
	if err := fetcher.FetchFile(ctx, nickURL, framedata.NicknamesFile); err != nil {
		fatal(logger, "fetch nicknames", err)
	}
	table, err := framedata.LoadNicknameTable(filepath.Join(cfg.DataDir, framedata.NicknamesFile))
	if err != nil {
		fatal(logger, "load nicknames", err)
	}
	if err := sdb.Seed(table.IDs(), cfg.UpstreamURL); err != nil {
		fatal(logger, "seed sources", err)
	}

	if *character != "" {
		changed, err := fetcher.FetchCharacter(ctx, *character)
		if err != nil {
			fatal(logger, "fetch", err)
		}
		fmt.Printf("%s: changed=%v\n", *character, changed)
		return
	}

	changed, err := fetcher.FetchAll(ctx)
	fmt.Printf("%d characters, %d changed\n", len(table.IDs()), len(changed))
	for _, id := range changed {
		fmt.Printf("  %s\n", id)
	}
	if err != nil {
		fatal(logger, "fetch finished with errors", err)
	}
}

func cmdSources(args []string) {
	f := newFlags("sources")
	character := f.fs.String("character", "", "character id whose URL to change")
	setURL := f.fs.String("set-url", "", "new upstream URL for -character")
	f.fs.Parse(args)

	cfg := f.load()
	logger := cfg.logger()

	sdb, err := sources.OpenSourceDB(cfg.sourcesDBPath())
	if err != nil {
		fatal(logger, "open sources db", err)
	}
	defer sdb.Close()

	if *setURL != "" {
		if *character == "" {
			fmt.Fprintln(os.Stderr, "sources: -set-url needs -character")
			os.Exit(1)
		}
		if err := sdb.SetURL(*character, *setURL); err != nil {
			fatal(logger, "set url", err)
		}
		fmt.Printf("%s -> %s\n", *character, *setURL)
		return
	}

	srcs, err := sdb.ListSources()
	if err != nil {
		fatal(logger, "list sources", err)
	}
	for _, src := range srcs {
		status := "-"
		if src.LastStatus != nil {
			status = fmt.Sprintf("%d", *src.LastStatus)
		}
		fetched := "never"
		if src.LastFetch != nil {
			fetched = time.Unix(*src.LastFetch, 0).Format(time.RFC3339)
		}
		fmt.Printf("  %-20s  [%s]  fetched %s  %s\n", src.CharacterID, status, fetched, src.SourceURL)
		if src.LastError != nil {
			fmt.Printf("  %-20s  error: %s\n", "", *src.LastError)
		}
	}
}
