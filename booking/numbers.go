package booking

import (
	"fmt"
	"sync"
	"time"
)

// NumberGenerator produces unique, human-readable booking numbers of the
// form RPB-YYYYMMDD-0001. The suffix is a per-day sequence guarded by a
// mutex, so two concurrently created bookings can never share a number.
// The suffix widens past four digits rather than wrapping.
type NumberGenerator struct {
	mu  sync.Mutex
	day string
	seq int
	now func() time.Time
}

// NewNumberGenerator creates a generator using the wall clock.
func NewNumberGenerator() *NumberGenerator {
	return &NumberGenerator{now: time.Now}
}

// NewNumberGeneratorAt creates a generator with an injected clock, for tests.
func NewNumberGeneratorAt(now func() time.Time) *NumberGenerator {
	return &NumberGenerator{now: now}
}

// Next returns the next unique booking number.
func (g *NumberGenerator) Next() Number {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().UTC().Format("20060102")
	if today != g.day {
		g.day = today
		g.seq = 0
	}
	g.seq++
	return Number(fmt.Sprintf("RPB-%s-%04d", g.day, g.seq))
}

// Seed advances the generator past an already-issued number, so a process
// restart over a persistent store never reissues one. Only moves the
// sequence forward; malformed numbers are ignored, and a seed from a past
// day is discarded by the daily reset in Next.
func (g *NumberGenerator) Seed(n Number) {
	var day string
	var seq int
	if _, err := fmt.Sscanf(string(n), "RPB-%8s-%d", &day, &seq); err != nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case day == g.day:
		if seq > g.seq {
			g.seq = seq
		}
	case g.day == "":
		g.day = day
		g.seq = seq
	}
}
