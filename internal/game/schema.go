package game

import (
	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/valuetype"
)

// RunState fields of a turn.
const (
	FieldMessages         = "messages"
	FieldIntent           = "intent"
	FieldReasoningLog     = "reasoning_log"
	FieldMechanicsResults = "mechanics_results"
	FieldFinalResponse    = "final_response"
	FieldZoneID           = "zone_id"
)

// Intents produced by the router.
const (
	IntentMechanics = "MECHANICS"
	IntentNarrative = "NARRATIVE"
)

// Schema is the RunState schema shared by every turn graph.
var Schema = domain.MustSchema(
	domain.AppendField(FieldMessages),
	domain.OverwriteField(FieldIntent).Of(valuetype.String),
	domain.AppendField(FieldReasoningLog).Of(valuetype.String),
	domain.AppendField(FieldMechanicsResults).Of(valuetype.String),
	domain.OverwriteField(FieldFinalResponse).Of(valuetype.String),
	domain.OverwriteField(FieldZoneID).Of(valuetype.String),
)

// Messages extracts the conversation from a view. Plain strings are read as
// user messages.
func Messages(v domain.View) []domain.Message {
	list, err := v.List(FieldMessages)
	if err != nil {
		return nil
	}
	out := make([]domain.Message, 0, len(list))
	for _, item := range list {
		switch m := item.(type) {
		case domain.Message:
			out = append(out, m)
		case *domain.Message:
			out = append(out, *m)
		case string:
			out = append(out, domain.Message{Role: domain.RoleUser, Content: m})
		}
	}
	return out
}
