package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tickerchat/pkg/domain/types"
)

// OwnerID is the opaque, stable identifier of an authenticated caller
type OwnerID string

// ChatSessionID is a UUID v7 based identifier of a conversation
type ChatSessionID string

// NewChatSessionID generates a new time ordered ChatSessionID
func NewChatSessionID() ChatSessionID {
	return ChatSessionID(uuid.Must(uuid.NewV7()).String())
}

// ChatMessageID is a UUID v7 based identifier of a stored message
type ChatMessageID string

// NewChatMessageID generates a new time ordered ChatMessageID
func NewChatMessageID() ChatMessageID {
	return ChatMessageID(uuid.Must(uuid.NewV7()).String())
}

// SessionTitleMaxRunes caps the title derived from the first user message
const SessionTitleMaxRunes = 60

// ChatSession is a conversation owned by exactly one user
type ChatSession struct {
	ID        ChatSessionID
	OwnerID   OwnerID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one stored side of an exchange. Messages are never mutated.
type ChatMessage struct {
	ID        ChatMessageID
	OwnerID   OwnerID
	SessionID ChatSessionID
	Role      types.Role
	Content   string
	CreatedAt time.Time
}

// Turn is a validated chat turn received from or sent to a caller
type Turn struct {
	Role    types.Role
	Content string
}

// UserTurn builds a user turn
func UserTurn(content string) Turn {
	return Turn{Role: types.RoleUser, Content: content}
}

// AssistantTurn builds an assistant turn
func AssistantTurn(content string) Turn {
	return Turn{Role: types.RoleAssistant, Content: content}
}

// NewTurn validates role and returns a Turn
func NewTurn(role, content string) (Turn, error) {
	r, err := types.ParseRole(role)
	if err != nil {
		return Turn{}, goerr.Wrap(err, "invalid chat turn", goerr.V("role", role))
	}
	return Turn{Role: r, Content: content}, nil
}

// LastUserTurn returns the most recent user turn in turns
func LastUserTurn(turns []Turn) (Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == types.RoleUser {
			return turns[i], true
		}
	}
	return Turn{}, false
}

// SessionTitle derives a session title from the first user message
func SessionTitle(firstMessage string) string {
	title := strings.Join(strings.Fields(firstMessage), " ")
	if title == "" {
		return "New conversation"
	}
	if utf8.RuneCountInString(title) <= SessionTitleMaxRunes {
		return title
	}
	runes := []rune(title)
	return strings.TrimSpace(string(runes[:SessionTitleMaxRunes])) + "…"
}
