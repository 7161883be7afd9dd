// Package main provides the CLI entry point for batchcrop.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/harliandi/go-batchcrop/internal/archive"
	"github.com/harliandi/go-batchcrop/internal/batch"
	"github.com/harliandi/go-batchcrop/internal/config"
	"github.com/harliandi/go-batchcrop/internal/converter"
	"github.com/harliandi/go-batchcrop/internal/logging"
	"github.com/harliandi/go-batchcrop/internal/settings"
	"github.com/harliandi/go-batchcrop/internal/source"
	"github.com/harliandi/go-batchcrop/internal/storage"
	"github.com/harliandi/go-batchcrop/pkg/geometry"
	"github.com/harliandi/go-batchcrop/pkg/metrics"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "batchcrop: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "batchcrop",
		Usage:     "Crop, pad and re-encode a batch of images into one zip",
		UsageText: "batchcrop [options] <image|dir|zip>...",
		Version:   version,
		Flags: []cli.Flag{
			// Settings
			&cli.StringFlag{Name: "settings", Aliases: []string{"s"}, Usage: "YAML settings file", EnvVars: []string{"BATCHCROP_SETTINGS"}},
			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: "output width in pixels (default: 900)", EnvVars: []string{"BATCHCROP_WIDTH"}},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: "output height in pixels (default: 900)", EnvVars: []string{"BATCHCROP_HEIGHT"}},
			&cli.StringFlag{Name: "crop-position", Aliases: []string{"c"}, Usage: `crop anchor, e.g. "Crop Bottom Middle" or top-left (default: bottom-middle)`, EnvVars: []string{"BATCHCROP_CROP_POSITION"}},
			&cli.BoolFlag{Name: "add-space", Usage: "reserve a white margin strip", EnvVars: []string{"BATCHCROP_ADD_SPACE"}},
			&cli.IntFlag{Name: "space-size", Usage: "margin strip size in pixels (default: 200)", EnvVars: []string{"BATCHCROP_SPACE_SIZE"}},
			&cli.StringFlag{Name: "space-position", Usage: "margin edge: top, bottom, left or right (default: bottom)", EnvVars: []string{"BATCHCROP_SPACE_POSITION"}},
			&cli.IntFlag{Name: "max-file-size", Usage: "per-image size ceiling in KB, 0 for none", EnvVars: []string{"BATCHCROP_MAX_FILE_SIZE"}},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format: webp, jpg or png (default: webp)", EnvVars: []string{"BATCHCROP_FORMAT"}},
			&cli.BoolFlag{Name: "print-settings", Usage: "print the effective settings as YAML and exit"},

			// Output
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: archive.DefaultName, Usage: "archive path or s3://bucket/key", EnvVars: []string{"BATCHCROP_OUTPUT"}},
			&cli.BoolFlag{Name: "unique-names", Usage: "rename duplicate archive entries instead of overwriting them", EnvVars: []string{"BATCHCROP_UNIQUE_NAMES"}},

			// Process
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "images processed in parallel (default: WORKER_COUNT or CPU count)"},
			&cli.StringFlag{Name: "metrics-file", Usage: "write Prometheus metrics to this file when done", EnvVars: []string{"BATCHCROP_METRICS_FILE"}},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: "debug, info, warn or error (default: LOG_LEVEL or info)"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "do not print progress"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg := config.Load()

	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger := logging.New(c.App.ErrWriter, cfg.LogFormat, level)

	s, err := buildSettings(c)
	if err != nil {
		return err
	}

	if c.Bool("print-settings") {
		out, err := yaml.Marshal(s.ToFile())
		if err != nil {
			return fmt.Errorf("marshal settings: %w", err)
		}
		_, err = c.App.Writer.Write(out)
		return err
	}

	if err := s.Validate(); err != nil {
		return err
	}
	if c.NArg() == 0 {
		return errors.New("no inputs given; pass image files, directories or zip archives")
	}

	out, err := storage.ParseOutput(c.String("output"))
	if err != nil {
		return err
	}

	loader := &source.Loader{Logger: logger}
	sources, err := loader.Load(c.Args().Slice()...)
	if err != nil {
		return err
	}

	// Setup context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if path := c.String("metrics-file"); path != "" {
		defer func() {
			if err := metrics.WriteTextfile(path); err != nil {
				logger.Error("failed to write metrics", "path", path, "error", err)
			}
		}()
	}

	workers := cfg.WorkerCount
	if c.IsSet("workers") {
		workers = c.Int("workers")
	}

	var progress batch.ProgressFunc
	if !c.Bool("quiet") {
		progress = newProgressPrinter(c.App.ErrWriter).Print
	}

	driver := batch.New(s, batch.Options{
		Workers: workers,
		Converter: converter.Options{
			DecodeTimeout: cfg.DecodeTimeout,
			MaxInputBytes: cfg.MaxInputBytes(),
		},
		Archive:  archive.Options{UniqueNames: c.Bool("unique-names")},
		Progress: progress,
	}, logger)

	var buf bytes.Buffer
	res, stats, err := driver.Package(ctx, sources, &buf)
	if err != nil {
		if errors.Is(err, batch.ErrEmptyBatch) {
			return fmt.Errorf("%w (%d of %d failed)", err, len(res.Failed), res.Total)
		}
		return err
	}

	sink := storage.NewSink(out, storage.S3Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	}, logger)
	if err := sink.Put(ctx, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Wrote %d images to %s (%d failed, %d bytes)\n",
		stats.Entries, sink.Location(), len(res.Failed), stats.Bytes)
	for _, f := range res.Failed {
		fmt.Fprintf(c.App.Writer, "  skipped %s: %v\n", f.Name, f.Err)
	}
	return nil
}

// buildSettings layers defaults, the settings file and explicit flags
func buildSettings(c *cli.Context) (settings.Settings, error) {
	s := settings.Default()
	if path := c.String("settings"); path != "" {
		loaded, err := settings.Load(path)
		if err != nil {
			return settings.Settings{}, err
		}
		s = loaded
	}

	if c.IsSet("width") {
		s.Width = c.Int("width")
	}
	if c.IsSet("height") {
		s.Height = c.Int("height")
	}
	if c.IsSet("crop-position") {
		a, err := geometry.ParseAnchor(c.String("crop-position"))
		if err != nil {
			return settings.Settings{}, fmt.Errorf("%w: %w", settings.ErrInvalid, err)
		}
		s.Anchor = a
	}
	if c.IsSet("add-space") {
		s.Margin.Enabled = c.Bool("add-space")
	}
	if c.IsSet("space-size") {
		s.Margin.Size = c.Int("space-size")
	}
	if c.IsSet("space-position") {
		e, err := geometry.ParseEdge(c.String("space-position"))
		if err != nil {
			return settings.Settings{}, fmt.Errorf("%w: %w", settings.ErrInvalid, err)
		}
		s.Margin.Edge = e
	}
	if c.IsSet("max-file-size") {
		s.MaxFileSizeKB = c.Int("max-file-size")
	}
	if c.IsSet("format") {
		f, err := settings.ParseFormat(c.String("format"))
		if err != nil {
			return settings.Settings{}, fmt.Errorf("%w: %w", settings.ErrInvalid, err)
		}
		s.Format = f
	}
	return s, nil
}
