// Package app assembles the upload pipeline and its collaborators from a
// Config. Both the HTTP server and the batch ingester start here.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"video-qa-go/internal/chatbees"
	"video-qa-go/internal/config"
	"video-qa-go/internal/logger"
	"video-qa-go/internal/media"
	"video-qa-go/internal/metrics"
	"video-qa-go/internal/pipeline"
	"video-qa-go/internal/storage"
	"video-qa-go/internal/transcription"
)

type App struct {
	Config   config.Config
	Store    *storage.Dir
	Client   *chatbees.Client
	Querier  chatbees.Querier
	Pipeline *pipeline.Pipeline
	Registry *prometheus.Registry
}

func Build(cfg config.Config, log *logger.Logger) (*App, error) {
	store, err := storage.Open(cfg.UploadDir, cfg.PublicPrefix)
	if err != nil {
		return nil, err
	}

	client, err := chatbees.New(chatbees.Config{
		ServiceBaseURL:        cfg.ServiceBaseURL,
		AccountID:             cfg.AccountID,
		APIKey:                cfg.APIKey,
		LocalDevRoutingHeader: cfg.LocalDevRoutingHeader,
		Timeout:               cfg.HTTPTimeout,
		Log:                   log.Component("chatbees").Entry,
	})
	if err != nil {
		return nil, err
	}

	transcriber, err := newTranscriber(cfg, client)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mediaLog := log.Component("media").Entry
	p := pipeline.New(pipeline.Deps{
		Store:       store,
		Inspector:   media.NewFFprobe(cfg.FFprobePath, mediaLog),
		Extractor:   media.NewFFmpeg(cfg.FFmpegPath, mediaLog),
		Transcriber: transcriber,
		Registrar:   client,
		Metrics:     metrics.MustNew(reg),
		Log:         log.Component("pipeline").Entry,
	}, pipeline.Options{
		Collection:       cfg.Collection,
		Language:         cfg.Language,
		CleanupOnFailure: cfg.CleanupOnFailure,
	})

	var q chatbees.Querier = client
	if cfg.QueryCacheSize > 0 {
		q = chatbees.NewCached(client, cfg.QueryCacheSize, cfg.QueryCacheTTL)
	}

	log.WithFields(logrus.Fields{
		"upload_dir":  store.Root(),
		"service_url": cfg.ServiceBaseURL,
		"collection":  cfg.Collection,
		"transcriber": cfg.TranscribeProvider,
	}).Info("pipeline assembled")

	return &App{Config: cfg, Store: store, Client: client, Querier: q, Pipeline: p, Registry: reg}, nil
}

func newTranscriber(cfg config.Config, client *chatbees.Client) (transcription.Transcriber, error) {
	switch cfg.TranscribeProvider {
	case config.ProviderRemote, "":
		return transcription.NewRemote(client, cfg.Collection), nil
	case config.ProviderOpenAI:
		return transcription.NewWhisper(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case config.ProviderMock:
		return transcription.Mock{}, nil
	}
	return nil, fmt.Errorf("unknown transcription provider %q", cfg.TranscribeProvider)
}
