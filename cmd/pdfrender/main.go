package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/wudi/pdfrender/document"
	"github.com/wudi/pdfrender/observability"
	"github.com/wudi/pdfrender/render"
	"github.com/wudi/pdfrender/resources"
)

type options struct {
	in        string
	resources string
	out       string
	compress  bool
	workers   int
	dpi       float64
	quality   int
	verbose   bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfrender: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfrender: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfrender -in doc.json -resources res.json -out out.pdf [flags]\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.in, "in", "", "Document JSON file (- for stdin)")
	flag.StringVar(&opts.resources, "resources", "", "Resource manifest mapping font and image names to files")
	flag.StringVar(&opts.out, "out", "out.pdf", "Output PDF path (- for stdout)")
	flag.BoolVar(&opts.compress, "compress", true, "Deflate content streams and font programs")
	flag.IntVar(&opts.workers, "workers", 1, "Pages rendered concurrently")
	flag.Float64Var(&opts.dpi, "dpi", 300, "Resolution raster images are downscaled to")
	flag.IntVar(&opts.quality, "quality", 85, "JPEG quality for raster images")
	flag.BoolVar(&opts.verbose, "v", false, "Debug logging")
	flag.Parse()

	if opts.in == "" {
		flag.Usage()
		return options{}, fmt.Errorf("missing -in")
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := observability.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	doc, err := readDocument(opts.in)
	if err != nil {
		return err
	}

	var srcs resources.Sources
	if opts.resources != "" {
		if srcs, err = resources.ReadManifest(opts.resources); err != nil {
			return err
		}
	}
	table, err := resources.Load(ctx, srcs, opts.workers, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := render.Render(ctx, doc, table,
		render.WithCompression(opts.compress),
		render.WithWorkers(opts.workers),
		render.WithImageDPI(opts.dpi),
		render.WithJPEGQuality(opts.quality),
		render.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if opts.out == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}
	logger.Info("wrote pdf",
		observability.String("path", opts.out),
		observability.Int("pages", len(doc.Pages)),
		observability.Int("bytes", len(out)),
		observability.Duration("elapsed", time.Since(start)))
	return nil
}

func readDocument(path string) (*document.Document, error) {
	if path == "-" {
		return document.Decode(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	doc, err := document.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
