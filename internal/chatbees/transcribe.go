package chatbees

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

const transcribePath = "/docs/transcribe_audio"

type transcribeRequest struct {
	NamespaceName  string `json:"namespace_name"`
	CollectionName string `json:"collection_name"`
	Lang           string `json:"lang"`
}

type transcribeResponse struct {
	Transcript *string `json:"transcript"`
}

// TranscribeAudio uploads the audio file and returns the transcript exactly as
// the service sent it.
func (c *Client) TranscribeAudio(ctx context.Context, collection, audioPath, lang string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	meta, err := requestJSON(transcribeRequest{
		NamespaceName:  namespace,
		CollectionName: collection,
		Lang:           lang,
	})
	if err != nil {
		return "", err
	}

	var resp transcribeResponse
	err = c.postMultipart(ctx, transcribePath, func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f); err != nil {
			return err
		}
		return w.WriteField("request", meta)
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Transcript == nil {
		return "", errors.New(transcribePath + ": response has no transcript")
	}
	return *resp.Transcript, nil
}
