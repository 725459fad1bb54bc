// Package transcription turns an audio artifact into plain text.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"video-qa-go/internal/chatbees"
)

// ErrUnreachable marks failures where the transcription backend could not be
// reached at all, as opposed to rejecting the request.
var ErrUnreachable = errors.New("transcription service unreachable")

// Transcriber is a single-shot, non-retrying speech-to-text backend.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, lang string) (string, error)
}

type remoteClient interface {
	TranscribeAudio(ctx context.Context, collection, audioPath, lang string) (string, error)
}

// Remote transcribes through the document service, into collection.
type Remote struct {
	client     remoteClient
	collection string
}

func NewRemote(client remoteClient, collection string) *Remote {
	return &Remote{client: client, collection: collection}
}

// ForCollection returns a copy bound to another collection.
func (r *Remote) ForCollection(collection string) Transcriber {
	return &Remote{client: r.client, collection: collection}
}

func (r *Remote) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	text, err := r.client.TranscribeAudio(ctx, r.collection, audioPath, lang)
	if err != nil {
		if errors.Is(err, chatbees.ErrUnreachable) {
			return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return "", err
	}
	return text, nil
}

// Mock returns a canned transcript. Enabled with USE_MOCK_TRANSCRIBE=true.
type Mock struct{}

func (Mock) Transcribe(_ context.Context, audioPath, lang string) (string, error) {
	return fmt.Sprintf("MOCK TRANSCRIPT (%s): audio file %s", lang, filepath.Base(audioPath)), nil
}
