package game

import (
	"math/rand/v2"
	"sync"
)

// Dice rolls a die with the given number of sides, returning 1..sides.
// Implementations must be safe for concurrent turns.
type Dice interface {
	Roll(sides int) int
}

// RandomDice uses the process-wide random source.
type RandomDice struct{}

func (RandomDice) Roll(sides int) int {
	if sides < 1 {
		return 0
	}
	return rand.IntN(sides) + 1
}

// FixedDice replays a fixed sequence of rolls, wrapping around.
// Rolls are clamped to 1..sides.
type FixedDice struct {
	mu    sync.Mutex
	rolls []int
	next  int
}

// NewFixedDice returns dice that replay rolls in order.
func NewFixedDice(rolls ...int) *FixedDice {
	return &FixedDice{rolls: rolls}
}

func (d *FixedDice) Roll(sides int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rolls) == 0 {
		return sides
	}
	r := d.rolls[d.next%len(d.rolls)]
	d.next++
	return min(max(r, 1), sides)
}
