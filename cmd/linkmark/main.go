package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/starford/linkmark/internal"
	"github.com/starford/linkmark/internal/logfields"
	"github.com/starford/linkmark/internal/serialize"
	"github.com/starford/linkmark/internal/storage"
	pkgconfig "github.com/starford/linkmark/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// applyOutputFlags overlays the extract flags on the configured output.
func applyOutputFlags(cmd *cli.Command, out *internal.OutputConfig) error {
	if cmd.IsSet("separator") {
		out.Format = string(serialize.Delimited)
		out.Delimiter = cmd.String("separator")
	}
	if cmd.Bool("json") {
		if cmd.IsSet("separator") {
			return errors.New("--json and --separator are mutually exclusive")
		}
		out.Format = string(serialize.JSONLines)
	}
	if cmd.IsSet("quote") {
		out.QuoteFields = cmd.Bool("quote")
	}
	if cmd.IsSet("header") {
		out.Header = cmd.Bool("header")
	}
	if cmd.IsSet("dedupe") {
		out.Deduplicate = cmd.Bool("dedupe")
	}
	if cmd.IsSet("fields") {
		out.FieldOrder = nil
		for _, f := range strings.Split(cmd.String("fields"), ",") {
			if f = strings.TrimSpace(f); f != "" {
				out.FieldOrder = append(out.FieldOrder, f)
			}
		}
	}
	return out.Validate()
}

func extract(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return cli.ShowAppHelp(cmd)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyOutputFlags(cmd, &cfg.Output); err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	var buf bytes.Buffer
	outPath := cmd.String("output")
	if outPath != "" {
		w = &buf
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if cmd.Bool("progress") {
		opts = append(opts, internal.WithProgress(newProgress("Extracting")))
	}
	sum, err := internal.RunExtract(ctx, files, w, opts...)
	if err != nil {
		return err
	}
	if outPath != "" {
		if err := storage.WriteFileAtomic(outPath, buf.Bytes()); err != nil {
			return err
		}
	}
	if sum.Failed > 0 && sum.Failed == sum.Files {
		return fmt.Errorf("none of the %d input files could be read", sum.Files)
	}
	return nil
}

// newProgress returns a callback drawing a progress bar on stderr. The bar is
// created on the first call, once the total is known.
func newProgress(desc string) func(done, total int) {
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+desc+"[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(os.Stderr)
				}),
			)
		}
		_ = bar.Set(done)
	}
}

func runIndex(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	progress := newProgress("Indexing")
	if cmd.Bool("quiet") {
		progress = nil
	}

	rep, err := internal.RunIndex(ctx, progress, internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "indexed %d, unchanged %d, removed %d, failed %d\n",
		rep.Indexed, rep.Unchanged, rep.Removed, rep.Failed)
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:      "linkmark",
		Usage:     "Extract links from Markdown files as JSON lines or delimited text",
		ArgsUsage: "FILES...",
		Version:   version,
		Action:    extract,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Write one JSON object per link",
			},
			&cli.StringFlag{
				Name:    "separator",
				Aliases: []string{"s"},
				Usage:   "Field separator for delimited output (\\t for tab)",
				Value:   ",",
			},
			&cli.BoolFlag{
				Name:  "quote",
				Usage: "Quote values containing the separator; when false such values are an error",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "fields",
				Usage: "Comma-separated delimited field order",
			},
			&cli.BoolFlag{
				Name:  "header",
				Usage: "Write a header line in delimited output",
			},
			&cli.BoolFlag{
				Name:  "dedupe",
				Usage: "Keep only the first link per URL and file",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Draw a progress bar on stderr while extracting",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file atomically instead of stdout",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Build or refresh the SQLite link index for the configured input root",
				Action: runIndex,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Hide the progress bar"},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the link index over HTTP with live updates",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve link tools over MCP stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("application error", logfields.Error(err))
		os.Exit(1)
	}
}
