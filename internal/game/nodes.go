package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/infinite-echoes/echoes/internal/logging"
	"github.com/infinite-echoes/echoes/pkg/domain"
)

// Canned narration used when no Narrator is configured.
const (
	ResponseHit   = "The goblin shrieks as your sword connects!"
	ResponseQuiet = "You look around the room. It is quiet."
)

// NarrationRequest is everything a Narrator gets to write the turn's prose.
type NarrationRequest struct {
	ZoneID           string
	Messages         []domain.Message
	MechanicsResults []string
}

// Narrator turns a turn's outcome into prose, typically through an LLM.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (string, error)
}

// Rules are the numbers used by the mechanics node.
type Rules struct {
	ArmorClass  int
	AttackBonus int
	WeaponDie   int
	SpellDie    int
	DamageBonus int
}

// DefaultRules matches a goblin (AC 13) facing a level one fighter.
var DefaultRules = Rules{
	ArmorClass:  13,
	AttackBonus: 3,
	WeaponDie:   8,
	SpellDie:    10,
	DamageBonus: 2,
}

// Deps are the collaborators of the turn nodes.
type Deps struct {
	Dice     Dice
	Narrator Narrator // optional
	Rules    Rules
	Logger   *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Dice == nil {
		d.Dice = RandomDice{}
	}
	if d.Rules == (Rules{}) {
		d.Rules = DefaultRules
	}
	if d.Logger == nil {
		d.Logger = logging.NewNop()
	}
	return d
}

// Classify maps player input to an intent.
func Classify(input string) string {
	lower := strings.ToLower(input)
	if strings.Contains(lower, "attack") || strings.Contains(lower, "cast") {
		return IntentMechanics
	}
	return IntentNarrative
}

// Router classifies the last player message.
func Router(deps Deps) domain.NodeFunc {
	deps = deps.withDefaults()
	return func(ctx context.Context, v domain.View) (domain.Update, error) {
		msgs := Messages(v)
		if len(msgs) == 0 {
			return nil, fmt.Errorf("no player message to classify")
		}
		intent := Classify(msgs[len(msgs)-1].Content)
		deps.Logger.DebugContext(ctx, "intent classified", "intent", intent)
		return domain.Update{
			FieldIntent:       intent,
			FieldReasoningLog: []string{"classified as " + intent},
		}, nil
	}
}

// Mechanics resolves the player's action: a d20 attack roll against the
// target's armour class, then damage on a hit.
func Mechanics(deps Deps) domain.NodeFunc {
	deps = deps.withDefaults()
	rules := deps.Rules
	return func(ctx context.Context, v domain.View) (domain.Update, error) {
		action := "Attack"
		die, kind := rules.WeaponDie, "slashing"
		if msgs := Messages(v); len(msgs) > 0 && strings.Contains(strings.ToLower(msgs[len(msgs)-1].Content), "cast") {
			action = "Spell Attack"
			die, kind = rules.SpellDie, "fire"
		}

		natural := deps.Dice.Roll(20)
		total := natural + rules.AttackBonus
		hit := natural == 20 || (natural != 1 && total >= rules.ArmorClass)

		var result string
		if hit {
			damage := deps.Dice.Roll(die) + rules.DamageBonus
			if natural == 20 {
				damage += deps.Dice.Roll(die)
			}
			result = fmt.Sprintf("%s Roll: %d (Hit). Damage: %d %s.", action, total, damage, kind)
		} else {
			result = fmt.Sprintf("%s Roll: %d (Miss).", action, total)
		}
		deps.Logger.DebugContext(ctx, "mechanics resolved", "roll", natural, "hit", hit)

		return domain.Update{
			FieldMechanicsResults: []string{result},
			FieldReasoningLog:     []string{"executed mechanics: " + result},
		}, nil
	}
}

// NarratorNode writes the final response and records it as an assistant message.
func NarratorNode(deps Deps) domain.NodeFunc {
	deps = deps.withDefaults()
	return func(ctx context.Context, v domain.View) (domain.Update, error) {
		results := v.Strings(FieldMechanicsResults)

		var response string
		if deps.Narrator != nil {
			zone, _ := v.String(FieldZoneID)
			text, err := deps.Narrator.Narrate(ctx, NarrationRequest{
				ZoneID:           zone,
				Messages:         Messages(v),
				MechanicsResults: results,
			})
			if err != nil {
				return nil, fmt.Errorf("narrator: %w", err)
			}
			response = strings.TrimSpace(text)
		}
		if response == "" {
			response = ResponseQuiet
			if len(results) > 0 {
				response = ResponseHit
			}
		}

		return domain.Update{
			FieldMessages:      []domain.Message{{Role: domain.RoleAssistant, Content: response}},
			FieldFinalResponse: response,
		}, nil
	}
}

// RouteIntent sends MECHANICS intents to the mechanics node and everything
// else to the narrator.
var RouteIntent = domain.Decision{
	Name:   "route_intent",
	Labels: []string{"mechanics", "narrator"},
	Reads:  []string{FieldIntent},
	Func: func(v domain.View) string {
		if intent, _ := v.String(FieldIntent); intent == IntentMechanics {
			return "mechanics"
		}
		return "narrator"
	},
}
