// Package processor drives the upload pipeline over a batch of manifest rows.
package processor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"video-qa-go/internal/pipeline"
	"video-qa-go/internal/types"
)

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (types.PipelineResult, error)
}

// Stager copies a local file into the upload directory.
type Stager interface {
	Stage(originalName string, r io.Reader) (types.UploadedMedia, error)
	Discard(m types.UploadedMedia)
}

// ItemResult is the outcome of one manifest row.
type ItemResult struct {
	Row        types.ManifestRow     `json:"row"`
	Result     *types.PipelineResult `json:"result,omitempty"`
	Stage      string                `json:"stage,omitempty"`
	Error      string                `json:"error,omitempty"`
	DurationMs int64                 `json:"duration_ms"`
}

type Report struct {
	Total       int          `json:"total"`
	Transcribed int          `json:"transcribed"`
	NoAudio     int          `json:"no_audio"`
	Failed      int          `json:"failed"`
	Skipped     int          `json:"skipped"`
	Items       []ItemResult `json:"items"`
}

type Batch struct {
	runner Runner
	stager Stager
	log    *logrus.Entry
}

func New(runner Runner, stager Stager, log *logrus.Entry) *Batch {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Batch{runner: runner, stager: stager, log: log.WithField("component", "processor")}
}

// Process runs every row through the pipeline, one at a time. A failing row
// does not stop the batch; cancelling ctx does, and the remaining rows are
// counted as skipped.
func (b *Batch) Process(ctx context.Context, rows []types.ManifestRow) Report {
	rep := Report{Total: len(rows)}
	for i, row := range rows {
		if ctx.Err() != nil {
			rep.Skipped = len(rows) - i
			b.log.WithField("skipped", rep.Skipped).Warn("batch cancelled")
			break
		}
		item := b.processOne(ctx, row)
		switch {
		case item.Error != "":
			rep.Failed++
		case item.Result.HasTranscript():
			rep.Transcribed++
		default:
			rep.NoAudio++
		}
		rep.Items = append(rep.Items, item)
	}
	b.log.WithFields(logrus.Fields{
		"total":       rep.Total,
		"transcribed": rep.Transcribed,
		"no_audio":    rep.NoAudio,
		"failed":      rep.Failed,
	}).Info("batch finished")
	return rep
}

func (b *Batch) processOne(ctx context.Context, row types.ManifestRow) ItemResult {
	log := b.log.WithField("row", row.Row).WithField("path", row.Path)
	start := time.Now()
	item := ItemResult{Row: row}

	res, err := b.run(ctx, row)
	item.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		kind, ok := pipeline.KindOf(err)
		if !ok {
			kind = pipeline.MalformedUpload
		}
		item.Stage = string(kind)
		item.Error = err.Error()
		log.WithError(err).WithField("kind", kind).Warn("row failed")
		return item
	}
	item.Result = &res
	log.WithField("doc_name", res.DocName).WithField("duration_ms", item.DurationMs).Info("row processed")
	return item
}

func (b *Batch) run(ctx context.Context, row types.ManifestRow) (types.PipelineResult, error) {
	f, err := os.Open(row.Path)
	if err != nil {
		return types.PipelineResult{}, pipeline.Malformed("open %s: %v", row.Path, err)
	}
	defer f.Close()

	media, err := b.stager.Stage(filepath.Base(row.Path), f)
	if err != nil {
		return types.PipelineResult{}, &pipeline.StageError{Kind: pipeline.PersistFailed, Err: fmt.Errorf("stage %s: %w", row.Path, err)}
	}
	defer b.stager.Discard(media)

	return b.runner.Run(ctx, pipeline.Request{Media: media, Lang: row.Lang, Collection: row.Collection})
}
