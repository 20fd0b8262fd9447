package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infinite-echoes/echoes/internal/runtime"
	"github.com/infinite-echoes/echoes/pkg/domain"
)

type stubNarrator struct {
	text string
	err  error
	got  NarrationRequest
}

func (s *stubNarrator) Narrate(_ context.Context, req NarrationRequest) (string, error) {
	s.got = req
	return s.text, s.err
}

func stateWith(t *testing.T, u domain.Update) *domain.RunState {
	t.Helper()
	st := domain.NewRunState(Schema)
	require.NoError(t, st.Merge(u))
	return st
}

func TestClassify(t *testing.T) {
	assert.Equal(t, IntentMechanics, Classify("I ATTACK the goblin"))
	assert.Equal(t, IntentMechanics, Classify("cast fireball"))
	assert.Equal(t, IntentNarrative, Classify("look around"))
}

func TestRouter(t *testing.T) {
	st := stateWith(t, domain.Update{FieldMessages: []string{"hello", "attack!"}})
	out, err := Router(Deps{})(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, IntentMechanics, out[FieldIntent])
	assert.Equal(t, []string{"classified as MECHANICS"}, out[FieldReasoningLog])

	_, err = Router(Deps{})(context.Background(), domain.NewRunState(Schema))
	assert.ErrorContains(t, err, "no player message")
}

func TestMechanics(t *testing.T) {
	tests := []struct {
		name  string
		input string
		rolls []int
		want  string
	}{
		{"hit", "attack", []int{15, 4}, "Attack Roll: 18 (Hit). Damage: 6 slashing."},
		{"miss", "attack", []int{5}, "Attack Roll: 8 (Miss)."},
		{"natural one misses", "attack", []int{1}, "Attack Roll: 4 (Miss)."},
		{"critical doubles dice", "attack", []int{20, 3, 5}, "Attack Roll: 23 (Hit). Damage: 10 slashing."},
		{"spell", "cast firebolt", []int{12, 7}, "Spell Attack Roll: 15 (Hit). Damage: 9 fire."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := Mechanics(Deps{Dice: NewFixedDice(tt.rolls...)})
			out, err := node(context.Background(), stateWith(t, domain.Update{FieldMessages: []string{tt.input}}))
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, out[FieldMechanicsResults])
		})
	}
}

func TestNarratorNode_Canned(t *testing.T) {
	node := NarratorNode(Deps{})

	out, err := node(context.Background(), domain.NewRunState(Schema))
	require.NoError(t, err)
	assert.Equal(t, ResponseQuiet, out[FieldFinalResponse])

	out, err = node(context.Background(), stateWith(t, domain.Update{FieldMechanicsResults: []string{"hit"}}))
	require.NoError(t, err)
	assert.Equal(t, ResponseHit, out[FieldFinalResponse])
	assert.Equal(t, []domain.Message{{Role: domain.RoleAssistant, Content: ResponseHit}}, out[FieldMessages])
}

func TestNarratorNode_UsesNarrator(t *testing.T) {
	n := &stubNarrator{text: "  The crypt breathes.  "}
	st := stateWith(t, domain.Update{
		FieldMessages:         []string{"attack"},
		FieldMechanicsResults: []string{"Attack Roll: 18 (Hit)."},
		FieldZoneID:           "crypt_level_1",
	})

	out, err := NarratorNode(Deps{Narrator: n})(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "The crypt breathes.", out[FieldFinalResponse])
	assert.Equal(t, "crypt_level_1", n.got.ZoneID)
	assert.Equal(t, []string{"Attack Roll: 18 (Hit)."}, n.got.MechanicsResults)
	assert.Equal(t, "attack", n.got.Messages[0].Content)

	n.err = errors.New("rate limited")
	_, err = NarratorNode(Deps{Narrator: n})(context.Background(), st)
	assert.ErrorContains(t, err, "narrator: rate limited")
}

func TestGraph_Turns(t *testing.T) {
	g, err := NewGraph(Deps{Dice: NewFixedDice(15, 4)})
	require.NoError(t, err)
	engine := runtime.NewEngine()

	t.Run("narrative", func(t *testing.T) {
		final, err := engine.Run(context.Background(), g, stateWith(t, domain.Update{FieldMessages: []string{"look around"}}))
		require.NoError(t, err)
		assert.Equal(t, []string{"classified as NARRATIVE"}, final.Strings(FieldReasoningLog))
		resp, _ := final.String(FieldFinalResponse)
		assert.Equal(t, ResponseQuiet, resp)
		assert.Empty(t, final.Strings(FieldMechanicsResults))
	})

	t.Run("mechanics", func(t *testing.T) {
		final, err := engine.Run(context.Background(), g, stateWith(t, domain.Update{FieldMessages: []string{"attack the goblin"}}))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"classified as MECHANICS",
			"executed mechanics: Attack Roll: 18 (Hit). Damage: 6 slashing.",
		}, final.Strings(FieldReasoningLog))
		resp, _ := final.String(FieldFinalResponse)
		assert.Equal(t, ResponseHit, resp)

		msgs := Messages(final)
		require.Len(t, msgs, 2)
		assert.Equal(t, domain.RoleAssistant, msgs[1].Role)
	})
}

func TestLoadGraph_DefaultTopologyMatchesNewGraph(t *testing.T) {
	built, err := NewGraph(Deps{})
	require.NoError(t, err)
	loaded, err := LoadGraph("", Deps{})
	require.NoError(t, err)

	assert.Equal(t, built.Describe(), loaded.Describe())
	assert.Equal(t, built.Entry(), loaded.Entry())
}

func TestBinding_SeedAndCommit(t *testing.T) {
	s := domain.NewSession("s1")
	s.ZoneID = "whispering_woods"
	s.Messages = []domain.Message{
		{Role: domain.RoleUser, Content: "old"},
		{Role: domain.RoleAssistant, Content: "older reply"},
		{Role: domain.RoleUser, Content: "look"},
		{Role: domain.RoleAssistant, Content: "quiet"},
	}

	b := Binding{HistoryLimit: 2}
	seed, err := b.Seed(s, "attack")
	require.NoError(t, err)

	msgs := Messages(seed)
	require.Len(t, msgs, 3)
	assert.Equal(t, "look", msgs[0].Content)
	assert.Equal(t, "attack", msgs[2].Content)
	zone, _ := seed.String(FieldZoneID)
	assert.Equal(t, "whispering_woods", zone)

	final := seed.Clone()
	require.NoError(t, final.Merge(domain.Update{
		FieldMessages:      []domain.Message{{Role: domain.RoleAssistant, Content: ResponseHit}},
		FieldFinalResponse: ResponseHit,
	}))

	b.Commit(s, seed, final)
	require.Len(t, s.Messages, 6)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "attack"}, s.Messages[4])
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: ResponseHit}, s.Messages[5])
	assert.Equal(t, ResponseHit, s.LastResponse)
	assert.Equal(t, 1, s.Turns)
}
