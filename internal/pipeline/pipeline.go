// Package pipeline runs one uploaded video through persist, probe and, when
// the file has audio, extract, transcribe and register.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"video-qa-go/internal/chatbees"
	"video-qa-go/internal/media"
	"video-qa-go/internal/metrics"
	"video-qa-go/internal/naming"
	"video-qa-go/internal/transcription"
	"video-qa-go/internal/types"
)

const NoAudioMessage = "No audio stream found in the video"

// Store is the upload directory.
type Store interface {
	Persist(m types.UploadedMedia, name string) (types.StoredArtifact, error)
	Artifact(kind types.ArtifactKind, name string) types.StoredArtifact
	Remove(a types.StoredArtifact) error
}

// Registrar indexes a transcript under a document name.
type Registrar interface {
	AddDocument(ctx context.Context, collection string, doc chatbees.DocName, text string) error
}

// collectionScoped is implemented by transcribers that write into a
// collection of the remote service.
type collectionScoped interface {
	ForCollection(collection string) transcription.Transcriber
}

type Deps struct {
	Store       Store
	Inspector   media.Inspector
	Extractor   media.Extractor
	Transcriber transcription.Transcriber
	Registrar   Registrar
	// Names allocates artifact names; naming.Allocate when nil.
	Names   func(original string) string
	Metrics *metrics.Metrics
	Log     *logrus.Entry
}

type Options struct {
	Collection string
	Language   string
	// CleanupOnFailure removes artifacts written by a run that later failed.
	// Off by default: artifacts stay on disk.
	CleanupOnFailure bool
}

type Pipeline struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Pipeline {
	if deps.Names == nil {
		deps.Names = naming.Allocate
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Request is one upload plus optional per-request overrides.
type Request struct {
	Media      types.UploadedMedia
	Lang       string
	Collection string
}

// Run processes one upload. It returns either a complete result or a
// *StageError for the first stage that failed, never both.
func (p *Pipeline) Run(ctx context.Context, req Request) (types.PipelineResult, error) {
	defer p.deps.Metrics.Track()()

	lang := firstNonEmpty(req.Lang, p.opts.Language)
	collection := firstNonEmpty(req.Collection, p.opts.Collection)
	log := p.deps.Log.WithFields(logrus.Fields{
		"original":   req.Media.OriginalName,
		"size":       req.Media.Size,
		"collection": collection,
	})

	var written []types.StoredArtifact
	res, err := p.run(ctx, log, req.Media, lang, collection, &written)
	if err != nil {
		kind, _ := KindOf(err)
		p.deps.Metrics.IncFailure(string(kind))
		p.deps.Metrics.IncUpload("failed")
		log.WithError(err).WithField("kind", kind).Warn("upload pipeline failed")
		if p.opts.CleanupOnFailure {
			p.cleanup(log, written)
		}
		return types.PipelineResult{}, err
	}

	outcome := "transcribed"
	if !res.HasTranscript() {
		outcome = "no_audio"
	}
	p.deps.Metrics.IncUpload(outcome)
	log.WithFields(logrus.Fields{"video": res.VideoURL, "doc_name": res.DocName, "outcome": outcome}).Info("upload pipeline finished")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *logrus.Entry, m types.UploadedMedia, lang, collection string, written *[]types.StoredArtifact) (types.PipelineResult, error) {
	original := filepath.Base(strings.TrimSpace(m.OriginalName))
	if m.TempPath == "" || original == "" || original == "." || original == string(filepath.Separator) {
		return types.PipelineResult{}, Malformed("upload has no file name or content")
	}

	// Received -> Persisted
	var video types.StoredArtifact
	err := p.stage(log, "persist", PersistFailed, func() (err error) {
		video, err = p.deps.Store.Persist(m, p.deps.Names(original))
		return err
	})
	if err != nil {
		return types.PipelineResult{}, err
	}
	*written = append(*written, video)
	log = log.WithField("video", video.Name)

	// Persisted -> Probed
	var hasAudio bool
	err = p.stage(log, "probe", ProbeFailed, func() (err error) {
		hasAudio, err = p.deps.Inspector.HasAudioStream(ctx, video.Path)
		return err
	})
	if err != nil {
		return types.PipelineResult{}, err
	}
	if !hasAudio {
		log.Info("no audio stream, skipping transcription")
		return types.PipelineResult{VideoURL: video.URL, Message: NoAudioMessage}, nil
	}

	// Probed -> Extracted
	audio := p.deps.Store.Artifact(types.ArtifactAudio, audioName(video.Name))
	err = p.stage(log, "extract", ExtractionFailed, func() error {
		return p.deps.Extractor.ExtractAudio(ctx, video.Path, audio.Path)
	})
	*written = append(*written, audio)
	if err != nil {
		return types.PipelineResult{}, err
	}

	// Extracted -> Transcribed
	transcriber := p.deps.Transcriber
	if scoped, ok := transcriber.(collectionScoped); ok {
		transcriber = scoped.ForCollection(collection)
	}
	var transcript string
	err = p.stage(log, "transcribe", TranscriptionFailed, func() (err error) {
		transcript, err = transcriber.Transcribe(ctx, audio.Path, lang)
		return err
	})
	if err != nil {
		return types.PipelineResult{}, err
	}

	// Transcribed -> Registered
	doc := chatbees.DocNameFor(video.Name)
	err = p.stage(log, "register", RegistrationFailed, func() error {
		return p.deps.Registrar.AddDocument(ctx, collection, doc, transcript)
	})
	if err != nil {
		return types.PipelineResult{}, err
	}

	return types.PipelineResult{
		VideoURL:   video.URL,
		AudioURL:   audio.URL,
		Transcript: transcript,
		DocName:    doc.String(),
	}, nil
}

// stage runs fn, records its duration and wraps a failure as kind.
func (p *Pipeline) stage(log *logrus.Entry, name string, kind Kind, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.deps.Metrics.ObserveStage(name, status, elapsed)
	log.WithFields(logrus.Fields{"stage": name, "status": status, "duration_ms": elapsed.Milliseconds()}).Debug("stage finished")

	if err == nil {
		return nil
	}
	if kind == TranscriptionFailed && errors.Is(err, transcription.ErrUnreachable) {
		kind = TranscriptionUnreachable
	}
	return newStageError(kind, err)
}

func (p *Pipeline) cleanup(log *logrus.Entry, written []types.StoredArtifact) {
	for _, a := range written {
		if err := p.deps.Store.Remove(a); err != nil {
			log.WithError(err).WithField("artifact", a.Name).Warn("cleanup failed")
		}
	}
}

// audioName derives the audio artifact name from the video's. An upload that
// already carries the audio extension gets an "_audio" suffix so the derived
// file never overwrites its source.
func audioName(videoName string) string {
	if strings.EqualFold(filepath.Ext(videoName), media.AudioExt) {
		return naming.Stem(videoName) + "_audio" + media.AudioExt
	}
	return naming.WithExt(videoName, media.AudioExt)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
