package cards

import (
	"math/rand"
	"sync"
	"time"
)

// Dealer supplies the random draws a round needs.
type Dealer interface {
	// Card returns a rank in [1,13].
	Card() int
	// Target returns an interactive target in [1,9].
	Target() int
}

// RandomDealer draws uniformly from a seeded source.
type RandomDealer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDealer creates a dealer seeded from the clock.
func NewRandomDealer() *RandomDealer {
	return &RandomDealer{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Card draws a rank uniformly from [1,13].
func (d *RandomDealer) Card() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(MaxRank) + MinRank
}

// Target draws a target uniformly from [1,9].
func (d *RandomDealer) Target() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(MaxTarget) + MinTarget
}

// StackedDealer replays fixed draws in order.
type StackedDealer struct {
	Cards   []int
	Targets []int
}

// Card pops the next stacked card. Panics when the stack is exhausted.
func (d *StackedDealer) Card() int {
	c := d.Cards[0]
	d.Cards = d.Cards[1:]
	return c
}

// Target pops the next stacked target.
func (d *StackedDealer) Target() int {
	t := d.Targets[0]
	d.Targets = d.Targets[1:]
	return t
}
