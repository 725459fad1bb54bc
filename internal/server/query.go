package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"video-qa-go/internal/chatbees"
)

type docQuery struct {
	DocName    string `json:"docName"`
	Collection string `json:"collection,omitempty"`
}

type askQuery struct {
	docQuery
	Question        string      `json:"question"`
	HistoryMessages [][2]string `json:"historyMessages,omitempty"`
	ConversationID  string      `json:"conversationId,omitempty"`
}

type askResponse struct {
	Answer         string         `json:"answer"`
	Refs           []chatbees.Ref `json:"refs"`
	ConversationID string         `json:"conversationId,omitempty"`
}

type outlineResponse struct {
	Outlines []string       `json:"outlines"`
	FAQs     []chatbees.FAQ `json:"faqs"`
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request, v any) (ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", err.Error())
		return false
	}
	return true
}

func (s *Server) collection(q docQuery) string {
	if q.Collection != "" {
		return q.Collection
	}
	return s.opts.Collection
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var q askQuery
	if !s.decodeQuery(w, r, &q) {
		return
	}
	doc := chatbees.ParseDocName(q.DocName)
	if doc.Empty() || q.Question == "" {
		writeError(w, http.StatusBadRequest, "docName and question required", "")
		return
	}
	ans, err := s.querier.Ask(r.Context(), s.collection(q.docQuery), chatbees.Question{
		Doc:            doc,
		Text:           q.Question,
		History:        q.HistoryMessages,
		ConversationID: q.ConversationID,
	})
	if err != nil {
		s.writeUpstreamError(w, r, "ask", err)
		return
	}
	refs := ans.Refs
	if refs == nil {
		refs = []chatbees.Ref{}
	}
	writeJSON(w, http.StatusOK, askResponse{Answer: ans.Answer, Refs: refs, ConversationID: ans.ConversationID})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	var q docQuery
	if !s.decodeQuery(w, r, &q) {
		return
	}
	doc := chatbees.ParseDocName(q.DocName)
	if doc.Empty() {
		writeError(w, http.StatusBadRequest, "docName required", "")
		return
	}
	of, err := s.querier.GetOutlineFAQ(r.Context(), s.collection(q), doc)
	if err != nil {
		s.writeUpstreamError(w, r, "outline", err)
		return
	}
	writeJSON(w, http.StatusOK, outlineResponse{Outlines: of.Outlines, FAQs: of.FAQs})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var q docQuery
	if !s.decodeQuery(w, r, &q) {
		return
	}
	doc := chatbees.ParseDocName(q.DocName)
	if doc.Empty() {
		writeError(w, http.StatusBadRequest, "docName required", "")
		return
	}
	summary, err := s.querier.Summary(r.Context(), s.collection(q), doc)
	if err != nil {
		s.writeUpstreamError(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	if s.opts.AccountID == "" {
		writeError(w, http.StatusNotFound, "Account ID not found", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"accountId":  s.opts.AccountID,
		"collection": s.opts.Collection,
	})
}

// writeUpstreamError reports a failed remote query as 502, passing 4xx
// replies from the service through unchanged.
func (s *Server) writeUpstreamError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.WithRequest(r).WithField("op", op).WithError(err).Warn("document query failed")
	status := http.StatusBadGateway
	var se *chatbees.StatusError
	if errors.As(err, &se) && se.Status >= 400 && se.Status < 500 {
		status = se.Status
	}
	writeError(w, status, op+" failed", err.Error())
}
