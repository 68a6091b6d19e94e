package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/telesis/internal/pagescan"
)

func (c *cli) scanCmd() *cobra.Command {
	var (
		target      string
		level       string
		maxElements int
		browserBin  string
		controlURL  string
		title       string
		format      string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Render a page in Chromium and audit its text contrast",
		Example: `  contrast scan --url https://example.com
  contrast scan --url http://localhost:3000 --control-url ws://127.0.0.1:9222 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := c.level(level)
			if err != nil {
				return err
			}

			opts := pagescan.Options{
				BrowserBin:        c.cfg.BrowserBin,
				ControlURL:        c.cfg.BrowserControlURL,
				Headless:          c.cfg.BrowserHeadless,
				NavigationTimeout: time.Duration(c.cfg.ScanTimeoutSeconds) * time.Second,
				MaxElements:       c.cfg.ScanMaxElements,
				Logger:            c.logger,
			}
			if browserBin != "" {
				opts.BrowserBin = browserBin
			}
			if controlURL != "" {
				opts.ControlURL = controlURL
			}

			ctx := cmd.Context()
			pairs, err := pagescan.New(opts).Scan(ctx, target, maxElements)
			if err != nil {
				return err
			}

			c.logger.Debug("page scanned", "url", target, "elements", len(pairs))
			report := c.engine().EvaluateSet(ctx, pairs, lvl)
			if title != "" {
				report.Title = title
			} else {
				report.Title = "Contrast Scan: " + target
			}
			return c.emit(report, format, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&target, "url", "", "http(s) URL to scan")
	f.StringVar(&level, "level", "", "conformance level (AA or AAA)")
	f.IntVar(&maxElements, "max-elements", 0, "maximum text elements to collect (0 uses the configured limit)")
	f.StringVar(&browserBin, "browser-bin", "", "path to a Chromium binary")
	f.StringVar(&controlURL, "control-url", "", "DevTools websocket URL of a running browser")
	f.StringVar(&title, "title", "", "report title")
	f.StringVar(&format, "format", "text", "output format (text, json or cbor)")
	f.StringVar(&out, "out", "", "write the report to this file instead of stdout")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
