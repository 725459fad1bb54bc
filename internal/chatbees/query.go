package chatbees

import (
	"context"
	"errors"
)

const (
	askPath     = "/docs/ask"
	outlinePath = "/docs/get_outline_faq"
	summaryPath = "/docs/summary"
)

type docRequest struct {
	NamespaceName  string `json:"namespace_name"`
	CollectionName string `json:"collection_name"`
	DocName        string `json:"doc_name"`
}

type askRequest struct {
	docRequest
	Question        string      `json:"question"`
	HistoryMessages [][2]string `json:"history_messages,omitempty"`
	ConversationID  string      `json:"conversation_id,omitempty"`
}

// Question is one turn of a conversation about a document.
type Question struct {
	Doc            DocName
	Text           string
	History        [][2]string
	ConversationID string
}

type Ref struct {
	DocName    string `json:"doc_name"`
	PageNum    int    `json:"page_num"`
	SampleCode string `json:"sample_code,omitempty"`
}

type Answer struct {
	Answer         string `json:"answer"`
	Refs           []Ref  `json:"refs,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type OutlineFAQ struct {
	Outlines []string `json:"outlines"`
	FAQs     []FAQ    `json:"faqs"`
}

func (c *Client) docRequest(collection string, doc DocName) docRequest {
	return docRequest{
		NamespaceName:  namespace,
		CollectionName: collection,
		DocName:        doc.QueryName(),
	}
}

// Ask asks a question scoped to one document.
func (c *Client) Ask(ctx context.Context, collection string, q Question) (Answer, error) {
	if q.Doc.Empty() {
		return Answer{}, errors.New("chatbees: empty document name")
	}
	req := askRequest{
		docRequest:      c.docRequest(collection, q.Doc),
		Question:        q.Text,
		HistoryMessages: q.History,
		ConversationID:  q.ConversationID,
	}
	var out Answer
	if err := c.postJSON(ctx, askPath, req, &out); err != nil {
		return Answer{}, err
	}
	return out, nil
}

func (c *Client) GetOutlineFAQ(ctx context.Context, collection string, doc DocName) (OutlineFAQ, error) {
	if doc.Empty() {
		return OutlineFAQ{}, errors.New("chatbees: empty document name")
	}
	var out OutlineFAQ
	if err := c.postJSON(ctx, outlinePath, c.docRequest(collection, doc), &out); err != nil {
		return OutlineFAQ{}, err
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, collection string, doc DocName) (string, error) {
	if doc.Empty() {
		return "", errors.New("chatbees: empty document name")
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.postJSON(ctx, summaryPath, c.docRequest(collection, doc), &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}
