package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/tiktok-archiver"
	"github.com/alanbriolat/tiktok-archiver/async"
	"github.com/alanbriolat/tiktok-archiver/export"
	"github.com/alanbriolat/tiktok-archiver/generic"
	_ "github.com/alanbriolat/tiktok-archiver/providers"
	"github.com/alanbriolat/tiktok-archiver/selection"
)

func main() {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Level = level
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = tiktok_archiver.WithLogger(ctx, logger)

	result := async.Run(func() error { return run(ctx, level, os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		logger.Warn("Interrupted, finishing up...")
		stop()
		err = <-result
	}
	if err != nil {
		logger.Fatal(err.Error())
	}
}

// run parses args and archives the export. Categories and configuration are checked before the export is opened, and
// the export is read before anything is written.
func run(ctx context.Context, level zap.AtomicLevel, args []string) error {
	app := &cli.App{
		Name:      "tiktok-archiver",
		Usage:     "download the videos referenced by a TikTok data export",
		ArgsUsage: "ARCHIVE OUTPUT",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "save",
				Aliases: []string{"s"},
				Usage:   fmt.Sprintf("`CATEGORY` of videos to save, one of %v (repeatable)", export.Categories),
			},
			&cli.IntFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Value:   tiktok_archiver.DefaultConfig.Parallel,
				Usage:   "download `N` videos at once",
				EnvVars: []string{"TIKTOK_ARCHIVER_PARALLEL"},
			},
			&cli.Float64Flag{
				Name:    "rate",
				Usage:   "start at most `R` downloads per second (0 for no limit)",
				EnvVars: []string{"TIKTOK_ARCHIVER_RATE"},
			},
			&cli.StringFlag{
				Name:    "template",
				Value:   tiktok_archiver.DefaultConfig.TargetFileTemplate,
				Usage:   "name files with `TEMPLATE` (fields: .Category .ID .URL .Date)",
				EnvVars: []string{"TIKTOK_ARCHIVER_TEMPLATE"},
			},
			&cli.StringFlag{
				Name:    "temp-dir",
				Usage:   "keep partial downloads in `DIR` (same filesystem as OUTPUT)",
				EnvVars: []string{"TIKTOK_ARCHIVER_TEMP_DIR"},
			},
			&cli.BoolFlag{
				Name:  "no-info-json",
				Usage: "don't write .info.json metadata next to each video",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				level.SetLevel(zap.DebugLevel)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return archive(ctx, c)
		},
		HideHelpCommand: true,
	}
	return app.Run(args)
}

func archive(ctx context.Context, c *cli.Context) error {
	logger := tiktok_archiver.Logger(ctx).Sugar()

	categories, err := selection.ParseCategories(c.StringSlice("save"))
	if err != nil {
		return err
	}

	cfg := tiktok_archiver.DefaultConfig
	cfg.Parallel = c.Int("parallel")
	cfg.RequestsPerSecond = c.Float64("rate")
	cfg.TargetFileTemplate = c.String("template")
	cfg.TempDir = c.String("temp-dir")
	cfg.WriteInfoJSON = !c.Bool("no-info-json")
	if c.NArg() != 2 {
		return errors.New("expected ARCHIVE and OUTPUT arguments")
	}
	cfg.OutputDir = c.Args().Get(1)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if changes, err := diff.Diff(tiktok_archiver.DefaultConfig, cfg); err != nil {
		logger.Errorf("failed to diff configuration: %v", err)
	} else {
		for _, change := range changes {
			logger.Debugf("config %v: %#v -> %#v", change.Path, change.From, change.To)
		}
	}

	a, err := export.Open(c.Args().Get(0))
	if err != nil {
		return err
	}
	logger.Infof("Read %s export from %s", a.Format, a.Path)
	logger.Debugf("providers: %v", tiktok_archiver.DefaultProviderRegistry.List())
	for _, category := range categories {
		for _, p := range a.Problems(category) {
			logger.Warnf("Ignoring %s", p)
		}
		logger.Debugf("%s: %d videos", category, a.Count(category))
	}

	refs, err := selection.Select(a, c.StringSlice("save"))
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(refs)), "archiving")
	downloader, err := tiktok_archiver.NewDownloader(cfg, &tiktok_archiver.DefaultProviderRegistry,
		tiktok_archiver.WithResultCallback(func(_ tiktok_archiver.DownloadResult, p tiktok_archiver.Progress) {
			generic.Unwrap_(bar.Set(p.Done))
		}),
	)
	if err != nil {
		return err
	}
	summary, err := downloader.Run(ctx, refs)
	if err != nil {
		return err
	}
	_ = bar.Finish()

	if err := summary.Report(os.Stderr); err != nil {
		return err
	}
	if summary.Failed() > 0 {
		logger.Warnf("%d of %d videos could not be downloaded", summary.Failed(), len(summary.Results))
	}
	return nil
}
