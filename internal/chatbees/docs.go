package chatbees

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
)

const addDocPath = "/docs/add"

type addDocRequest struct {
	NamespaceName  string `json:"namespace_name"`
	CollectionName string `json:"collection_name"`
	DocName        string `json:"doc_name"`
}

// AddDocument registers text as <doc>.txt in the collection under doc_name doc.
func (c *Client) AddDocument(ctx context.Context, collection string, doc DocName, text string) error {
	if doc.Empty() {
		return errors.New("chatbees: empty document name")
	}
	meta, err := requestJSON(addDocRequest{
		NamespaceName:  namespace,
		CollectionName: collection,
		DocName:        doc.String(),
	})
	if err != nil {
		return err
	}
	return c.postMultipart(ctx, addDocPath, func(w *multipart.Writer) error {
		part, err := w.CreateFormFile("file", doc.FileName())
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, strings.NewReader(text)); err != nil {
			return err
		}
		return w.WriteField("request", meta)
	}, nil)
}
