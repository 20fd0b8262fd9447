package domain

import (
	"reflect"
)

// StateDiff represents the changes between two RunStates.
// It is designed to be serialized to JSON for partial updates on the client.
type StateDiff struct {
	// Changed holds overwrite fields whose value differs from the old state.
	Changed map[string]any `json:"changed,omitempty"`

	// Appended holds the elements added to each append field.
	// Only append-only growth is reported; a shrunk sequence is reported whole in Changed.
	Appended map[string][]any `json:"appended,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState, newState *RunState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{}
	for _, f := range newState.schema.Fields() {
		newVal := newState.values[f.Name]
		var oldVal any = Unset
		if oldState != nil {
			if v, ok := oldState.values[f.Name]; ok {
				oldVal = v
			}
		}

		if f.Policy == Append {
			diffSequence(diff, f.Name, oldVal, newVal)
			continue
		}

		if IsUnset(newVal) {
			continue
		}
		if IsUnset(oldVal) || !reflect.DeepEqual(oldVal, newVal) {
			if diff.Changed == nil {
				diff.Changed = make(map[string]any)
			}
			diff.Changed[f.Name] = newVal
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffSequence(diff *StateDiff, name string, oldVal, newVal any) {
	newSeq, _ := newVal.([]any)
	oldSeq, _ := oldVal.([]any)
	if len(newSeq) == 0 {
		return
	}

	if hasPrefix(newSeq, oldSeq) {
		if len(newSeq) == len(oldSeq) {
			return
		}
		if diff.Appended == nil {
			diff.Appended = make(map[string][]any)
		}
		diff.Appended[name] = append([]any(nil), newSeq[len(oldSeq):]...)
		return
	}

	// Prefix mismatch: the sequence was rewritten, send everything.
	if diff.Changed == nil {
		diff.Changed = make(map[string]any)
	}
	diff.Changed[name] = append([]any(nil), newSeq...)
}

func hasPrefix(seq, prefix []any) bool {
	if len(prefix) > len(seq) {
		return false
	}
	for i := range prefix {
		if !reflect.DeepEqual(seq[i], prefix[i]) {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d == nil || (len(d.Changed) == 0 && len(d.Appended) == 0)
}
