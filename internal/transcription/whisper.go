package transcription

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper transcribes with an OpenAI compatible /audio/transcriptions API.
type Whisper struct {
	cli   *openai.Client
	model string
}

func NewWhisper(apiKey, baseURL, model string) *Whisper {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Whisper{cli: openai.NewClientWithConfig(cfg), model: model}
}

func (w *Whisper) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	resp, err := w.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Language: lang,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		if errors.As(err, &apiErr) || errors.As(err, &reqErr) {
			return "", fmt.Errorf("whisper transcription rejected: %w", err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp.Text, nil
}
