package game

import (
	"fmt"
	"time"

	"github.com/infinite-echoes/echoes/pkg/domain"
)

// Binding moves data between a persisted session and the RunState of a turn.
// Only final RunStates are committed; a failed run never reaches Commit.
type Binding struct {
	// HistoryLimit caps how many past messages seed a turn. Zero means all.
	HistoryLimit int
}

// Seed builds the initial RunState of a turn: recent history, the new player
// message and the session's zone.
func (b Binding) Seed(s *domain.Session, input string) (*domain.RunState, error) {
	history := s.Messages
	if b.HistoryLimit > 0 && len(history) > b.HistoryLimit {
		history = history[len(history)-b.HistoryLimit:]
	}

	seed := make([]domain.Message, 0, len(history)+1)
	seed = append(seed, history...)
	seed = append(seed, domain.Message{Role: domain.RoleUser, Content: input})

	update := domain.Update{FieldMessages: seed}
	if s.ZoneID != "" {
		update[FieldZoneID] = s.ZoneID
	}

	st := domain.NewRunState(Schema)
	if err := st.Merge(update); err != nil {
		return nil, fmt.Errorf("failed to seed turn: %w", err)
	}
	return st, nil
}

// Commit folds a completed run into the session. seed is the state returned
// by Seed for the same turn; messages past it are the turn's new messages.
func (b Binding) Commit(s *domain.Session, seed, final *domain.RunState) {
	before := len(Messages(seed))
	all := Messages(final)

	// The player's message is the last seeded one.
	if before > 0 {
		s.Messages = append(s.Messages, all[before-1])
	}
	if before < len(all) {
		s.Messages = append(s.Messages, all[before:]...)
	}

	if resp, ok := final.String(FieldFinalResponse); ok {
		s.LastResponse = resp
	}
	if zone, ok := final.String(FieldZoneID); ok {
		s.ZoneID = zone
	}
	s.Turns++
	s.UpdatedAt = time.Now()
}
