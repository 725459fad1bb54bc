package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"video-qa-go/internal/app"
	"video-qa-go/internal/config"
	"video-qa-go/internal/dataset"
	"video-qa-go/internal/logger"
	"video-qa-go/internal/processor"
)

type options struct {
	manifest   string
	limit      int
	lang       string
	collection string
	dryRun     bool
}

func newRootCommand(log *logger.Logger) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "ingest --manifest videos.xlsx",
		Short: "Upload, transcribe and register every video listed in an .xlsx manifest",
		Long: `Reads the first sheet of the manifest, finds the video path column by its
header (path, file or video) and runs each row through the upload pipeline,
one row at a time. Optional lang and collection columns override the
configured defaults per row. A JSON report is written to stdout.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), log, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.manifest, "manifest", "m", "", "path to the .xlsx manifest (required)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "process at most N rows (0 = all)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "default transcription language (overrides TRANSCRIBE_LANG)")
	cmd.Flags().StringVar(&opts.collection, "collection", "", "default collection (overrides CHATBEES_COLLECTION)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "summarize the manifest without uploading anything")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func run(ctx context.Context, out io.Writer, log *logger.Logger, opts options) error {
	if opts.limit < 0 {
		return errors.New("--limit must not be negative")
	}
	rows, err := dataset.Load(opts.manifest)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", opts.manifest, err)
	}
	if opts.limit > 0 && len(rows) > opts.limit {
		rows = rows[:opts.limit]
	}
	log.WithField("manifest", opts.manifest).WithField("rows", len(rows)).Info("manifest loaded")

	if opts.dryRun {
		lang := opts.lang
		if lang == "" {
			lang = "(default)"
		}
		collection := opts.collection
		if collection == "" {
			collection = "(default)"
		}
		return writeJSON(out, dataset.Summarize(rows, lang, collection, log.Entry))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.lang != "" {
		cfg.Language = opts.lang
	}
	if opts.collection != "" {
		cfg.Collection = opts.collection
	}
	dataset.Summarize(rows, cfg.Language, cfg.Collection, log.Entry)

	a, err := app.Build(cfg, log)
	if err != nil {
		return err
	}
	report := processor.New(a.Pipeline, a.Store, log.Entry).Process(ctx, rows)
	if err := writeJSON(out, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed", report.Failed, report.Total)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	log := logger.New()
	// stdout carries the report
	log.Logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(log).ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("ingest failed")
		stop()
		os.Exit(1)
	}
}
