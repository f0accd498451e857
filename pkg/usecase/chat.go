package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/interfaces"
	"github.com/secmon-lab/tickerchat/pkg/domain/model"
	"github.com/secmon-lab/tickerchat/pkg/domain/model/auth"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
	"github.com/secmon-lab/tickerchat/pkg/utils/async"
	"github.com/secmon-lab/tickerchat/pkg/utils/errutil"
	"github.com/secmon-lab/tickerchat/pkg/utils/logging"
)

const (
	// HistoryLimit is the number of newest messages returned for a session
	HistoryLimit = 50

	maxSessionIDLength = 128
)

// ChatRequest is one chat turn as received from the caller
type ChatRequest struct {
	SessionID model.ChatSessionID
	Turns     []model.Turn
}

// ChatResponder delivers the assistant reply to the caller. Exactly one of
// Stream or Reply is called per turn. sessionID is empty for anonymous callers.
type ChatResponder interface {
	// Stream is called before the first byte is forwarded and returns the sink
	Stream(sessionID model.ChatSessionID) io.Writer
	// Reply delivers a complete, non streaming answer
	Reply(sessionID model.ChatSessionID, text string) error
}

// ChatTurnResult summarizes a finished turn
type ChatTurnResult struct {
	SessionID model.ChatSessionID
	Text      string
	State     types.TurnState
	Degraded  bool
	Persisted bool
}

// Dispatcher runs a detached task
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

type ChatUseCase struct {
	repo      interfaces.Repository
	market    *MarketContext
	chain     *ProviderChain
	distiller *Distiller
	dispatch  Dispatcher
	now       func() time.Time
}

func NewChatUseCase(repo interfaces.Repository, market *MarketContext, chain *ProviderChain, distiller *Distiller) *ChatUseCase {
	return &ChatUseCase{
		repo:      repo,
		market:    market,
		chain:     chain,
		distiller: distiller,
		dispatch:  async.Dispatch,
		now:       time.Now,
	}
}

func logState(ctx context.Context, state types.TurnState) {
	logging.From(ctx).Debug("turn state", slog.String("state", string(state)))
}

// ValidSessionID reports whether id can be used as a session key
func ValidSessionID(id model.ChatSessionID) bool {
	if id == "" || len(id) > maxSessionIDLength {
		return false
	}
	for _, r := range string(id) {
		if r == '/' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return id != "." && id != ".."
}

// Send runs one chat turn. It fails only on invalid input; provider failures end
// in a degraded reply and persistence failures are logged.
func (uc *ChatUseCase) Send(ctx context.Context, req *ChatRequest, out ChatResponder) (*ChatTurnResult, error) {
	userTurn, ok := model.LastUserTurn(req.Turns)
	if !ok {
		return nil, goerr.Wrap(ErrNoUserMessage, "chat request has no user turn")
	}
	if req.SessionID != "" && !ValidSessionID(req.SessionID) {
		return nil, goerr.Wrap(ErrInvalidSessionID, "malformed session id", goerr.V(SessionIDKey, req.SessionID))
	}

	logState(ctx, types.TurnStateIdle)
	owner, authenticated := auth.OwnerFromContext(ctx)

	// A new session exists before any output, including a degraded reply
	var sessionID model.ChatSessionID
	if authenticated {
		id, err := uc.resolveSession(ctx, owner, req.SessionID, userTurn.Content)
		if err != nil {
			errutil.Handle(ctx, err, "failed to resolve chat session")
		} else {
			sessionID = id
			ctx = logging.With(ctx, logging.From(ctx).With(slog.String("session_id", string(sessionID))))
		}
	}

	logState(ctx, types.TurnStateContextGathering)
	snapshot := uc.market.Assemble(ctx)
	facts := ""
	if authenticated {
		facts = uc.loadFacts(ctx, owner)
	}
	systemPrompt := buildChatSystemPrompt(snapshot, uc.market.Labels(), facts)

	logState(ctx, types.TurnStateProviderSelection)
	gen := uc.chain.Select(ctx, &model.GenerationRequest{
		SystemPrompt: systemPrompt,
		Turns:        req.Turns,
	})

	result := &ChatTurnResult{SessionID: sessionID}

	if gen.Kind == model.GenerationImmediate {
		result.Degraded = true
		result.Text = gen.Text
		result.State = types.TurnStateFailed
		if err := out.Reply(sessionID, gen.Text); err != nil {
			logging.From(ctx).Debug("failed to deliver degraded reply", slog.Any("error", err))
		}
		logState(ctx, result.State)
		return result, nil
	}

	logState(ctx, types.TurnStateStreaming)
	stream := Normalize(ctx, gen, out.Stream(sessionID))
	result.Text = stream.Text
	result.State = stream.State()
	if ctx.Err() != nil && result.State == types.TurnStateCompleted {
		result.State = types.TurnStateAborted
	}
	logState(ctx, result.State)

	if sessionID == "" || strings.TrimSpace(stream.Text) == "" {
		return result, nil
	}

	// The caller may be gone already; the exchange is still recorded
	persistCtx := context.WithoutCancel(ctx)
	logState(persistCtx, types.TurnStatePersisting)
	if err := uc.persist(persistCtx, owner, sessionID, userTurn.Content, stream.Text); err != nil {
		errutil.Handle(persistCtx, err, "failed to persist chat exchange")
		return result, nil
	}
	result.Persisted = true

	if uc.distiller != nil {
		logState(persistCtx, types.TurnStateDistilling)
		userText, assistantText := userTurn.Content, stream.Text
		uc.dispatch(persistCtx, func(ctx context.Context) error {
			return uc.distiller.Distill(ctx, owner, userText, assistantText)
		})
	}

	return result, nil
}

func (uc *ChatUseCase) resolveSession(ctx context.Context, owner model.OwnerID, id model.ChatSessionID, firstMessage string) (model.ChatSessionID, error) {
	now := uc.now().UTC()

	if id == "" {
		session, err := uc.repo.ChatSession().Create(ctx, &model.ChatSession{
			ID:        model.NewChatSessionID(),
			OwnerID:   owner,
			Title:     model.SessionTitle(firstMessage),
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return "", goerr.Wrap(err, "failed to create chat session", goerr.V(OwnerIDKey, owner))
		}
		return session.ID, nil
	}

	fallback := &model.ChatSession{
		ID:        id,
		OwnerID:   owner,
		Title:     model.SessionTitle(firstMessage),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.ChatSession().Touch(ctx, id, now, fallback); err != nil {
		return "", goerr.Wrap(err, "failed to touch chat session", goerr.V(SessionIDKey, id))
	}
	return id, nil
}

func (uc *ChatUseCase) loadFacts(ctx context.Context, owner model.OwnerID) string {
	mem, err := uc.repo.UserMemory().Get(ctx, owner)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			logging.From(ctx).Warn("failed to load user memory", slog.Any("error", err))
		}
		return ""
	}
	return mem.Facts
}

func (uc *ChatUseCase) persist(ctx context.Context, owner model.OwnerID, sessionID model.ChatSessionID, userText, assistantText string) error {
	now := uc.now().UTC()
	user := &model.ChatMessage{
		ID:        model.NewChatMessageID(),
		OwnerID:   owner,
		SessionID: sessionID,
		Role:      types.RoleUser,
		Content:   userText,
		CreatedAt: now,
	}
	assistant := &model.ChatMessage{
		ID:        model.NewChatMessageID(),
		OwnerID:   owner,
		SessionID: sessionID,
		Role:      types.RoleAssistant,
		Content:   assistantText,
		CreatedAt: now,
	}
	if err := uc.repo.ChatMessage().PutPair(ctx, sessionID, user, assistant); err != nil {
		return goerr.Wrap(err, "failed to put chat messages", goerr.V(SessionIDKey, sessionID))
	}
	return nil
}

// ListSessions returns the caller's sessions, newest first. Anonymous callers get none.
func (uc *ChatUseCase) ListSessions(ctx context.Context) ([]*model.ChatSession, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, nil
	}
	sessions, err := uc.repo.ChatSession().ListByOwner(ctx, owner)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chat sessions", goerr.V(OwnerIDKey, owner))
	}
	return sessions, nil
}

// ownedSession returns ErrSessionNotFound for both missing and foreign sessions
func (uc *ChatUseCase) ownedSession(ctx context.Context, owner model.OwnerID, id model.ChatSessionID) (*model.ChatSession, error) {
	if !ValidSessionID(id) {
		return nil, goerr.Wrap(ErrSessionNotFound, "malformed session id", goerr.V(SessionIDKey, id))
	}
	session, err := uc.repo.ChatSession().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrSessionNotFound, "chat session not found", goerr.V(SessionIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get chat session", goerr.V(SessionIDKey, id))
	}
	if session.OwnerID != owner {
		return nil, goerr.Wrap(ErrSessionNotFound, "chat session owned by another user",
			goerr.V(SessionIDKey, id),
			goerr.V(OwnerIDKey, owner))
	}
	return session, nil
}

// Messages returns the newest messages of an owned session, oldest first. Missing,
// foreign and anonymous lookups yield an empty list.
func (uc *ChatUseCase) Messages(ctx context.Context, id model.ChatSessionID) ([]*model.ChatMessage, error) {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return nil, nil
	}

	if _, err := uc.ownedSession(ctx, owner, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	messages, err := uc.repo.ChatMessage().ListRecent(ctx, id, HistoryLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chat messages", goerr.V(SessionIDKey, id))
	}
	return messages, nil
}

// DeleteSession removes an owned session and all of its messages
func (uc *ChatUseCase) DeleteSession(ctx context.Context, id model.ChatSessionID) error {
	owner, ok := auth.OwnerFromContext(ctx)
	if !ok {
		return goerr.Wrap(ErrUnauthenticated, "anonymous caller cannot delete sessions")
	}

	if _, err := uc.ownedSession(ctx, owner, id); err != nil {
		return err
	}

	n, err := uc.repo.ChatMessage().DeleteBySession(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to delete chat messages", goerr.V(SessionIDKey, id))
	}
	if err := uc.repo.ChatSession().Delete(ctx, id); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return goerr.Wrap(err, "failed to delete chat session", goerr.V(SessionIDKey, id))
	}

	logging.From(ctx).Info("chat session deleted",
		slog.String("session_id", string(id)),
		slog.Int("messages", n))
	return nil
}
