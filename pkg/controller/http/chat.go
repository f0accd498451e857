package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/usecase"
	"github.com/secmon-lab/tickerchat/pkg/utils/errutil"
	"github.com/secmon-lab/tickerchat/pkg/utils/safe"
)

const (
	maxChatBodyBytes = 1 << 20
	headerSessionID  = "X-Session-Id"
)

// ChatUseCase is what the chat endpoint needs from the use case layer
type ChatUseCase interface {
	Send(ctx context.Context, req *usecase.ChatRequest, out usecase.ChatResponder) (*usecase.ChatTurnResult, error)
	ListSessions(ctx context.Context) ([]*model.ChatSession, error)
	Messages(ctx context.Context, id model.ChatSessionID) ([]*model.ChatMessage, error)
	DeleteSession(ctx context.Context, id model.ChatSessionID) error
}

type chatHandler struct {
	chat ChatUseCase
}

func newChatHandler(chat ChatUseCase) *chatHandler {
	return &chatHandler{chat: chat}
}

type chatMessageJSON struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequestJSON struct {
	Messages  []chatMessageJSON `json:"messages"`
	SessionID string            `json:"sessionId,omitempty"`
}

type chatSessionJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

func decodeChatRequest(r *http.Request) (*usecase.ChatRequest, error) {
	var body chatRequestJSON
	if err := json.NewDecoder(io.LimitReader(r.Body, maxChatBodyBytes)).Decode(&body); err != nil {
		return nil, goerr.Wrap(err, "invalid chat request body")
	}
	if len(body.Messages) == 0 {
		return nil, goerr.New("messages must not be empty")
	}

	req := &usecase.ChatRequest{
		SessionID: model.ChatSessionID(body.SessionID),
		Turns:     make([]model.Turn, 0, len(body.Messages)),
	}
	for i, m := range body.Messages {
		turn, err := model.NewTurn(m.Role, m.Content)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid message", goerr.V("index", i))
		}
		req.Turns = append(req.Turns, turn)
	}
	return req, nil
}

// httpResponder streams the reply as plain text, or answers {"reply": ...} when
// no provider produced a stream
type httpResponder struct {
	w http.ResponseWriter
	r *http.Request
}

func (h *httpResponder) setSessionID(id model.ChatSessionID) {
	if id != "" {
		h.w.Header().Set(headerSessionID, string(id))
	}
}

func (h *httpResponder) Stream(sessionID model.ChatSessionID) io.Writer {
	h.setSessionID(sessionID)
	h.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	h.w.Header().Set("Cache-Control", "no-cache")
	h.w.Header().Set("X-Accel-Buffering", "no")
	h.w.WriteHeader(http.StatusOK)
	safe.Flush(h.w)
	return h.w
}

func (h *httpResponder) Reply(sessionID model.ChatSessionID, text string) error {
	h.setSessionID(sessionID)
	writeJSON(h.w, h.r, http.StatusOK, map[string]string{"reply": text})
	return nil
}

func (h *chatHandler) post(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	if _, err := h.chat.Send(r.Context(), req, &httpResponder{w: w, r: r}); err != nil {
		switch {
		case errors.Is(err, usecase.ErrNoUserMessage), errors.Is(err, usecase.ErrInvalidSessionID):
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		default:
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		}
	}
}

func (h *chatHandler) get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("mode") == "list":
		sessions, err := h.chat.ListSessions(r.Context())
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}
		resp := struct {
			Sessions []chatSessionJSON `json:"sessions"`
		}{Sessions: make([]chatSessionJSON, 0, len(sessions))}
		for _, s := range sessions {
			resp.Sessions = append(resp.Sessions, chatSessionJSON{
				ID:        string(s.ID),
				Title:     s.Title,
				CreatedAt: s.CreatedAt,
				UpdatedAt: s.UpdatedAt,
			})
		}
		writeJSON(w, r, http.StatusOK, resp)

	case q.Get("sessionId") != "":
		messages, err := h.chat.Messages(r.Context(), model.ChatSessionID(q.Get("sessionId")))
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}
		resp := struct {
			Messages []chatMessageJSON `json:"messages"`
		}{Messages: make([]chatMessageJSON, 0, len(messages))}
		for _, m := range messages {
			resp.Messages = append(resp.Messages, chatMessageJSON{Role: m.Role.String(), Content: m.Content})
		}
		writeJSON(w, r, http.StatusOK, resp)

	default:
		errutil.HandleHTTP(r.Context(), w, goerr.New("mode=list or sessionId is required"), http.StatusBadRequest)
	}
}

func (h *chatHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")
	if id == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("sessionId is required"), http.StatusBadRequest)
		return
	}

	if err := h.chat.DeleteSession(r.Context(), model.ChatSessionID(id)); err != nil {
		switch {
		case errors.Is(err, usecase.ErrUnauthenticated):
			errutil.HandleHTTP(r.Context(), w, err, http.StatusUnauthorized)
		case errors.Is(err, usecase.ErrSessionNotFound):
			errutil.HandleHTTP(r.Context(), w, err, http.StatusNotFound)
		default:
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
