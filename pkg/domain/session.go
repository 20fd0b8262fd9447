package domain

import "time"

// Message is one entry of a session's conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is the persisted record of a player between turns.
// Only final RunStates are ever folded into it; in-flight state is never stored.
type Session struct {
	ID           string    `json:"id"`
	ZoneID       string    `json:"zone_id,omitempty"`
	Messages     []Message `json:"messages"`
	Turns        int       `json:"turns"`
	LastResponse string    `json:"last_response,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
