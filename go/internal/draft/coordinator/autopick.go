package coordinator

import (
	"math/rand"
	"time"

	"github.com/mcdev12/keeper/go/internal/models"
)

// AutoPickStrategy chooses the player an expired clock drafts. Candidates
// arrive ordered best rank first (unranked last, ties by player id) and are
// never empty; the caller handles the empty-pool case before invoking the
// strategy.
type AutoPickStrategy interface {
	Select(candidates []models.Player) models.Player
}

// BestAvailableStrategy drafts the top-ranked candidate. This is the default
// expiry policy.
type BestAvailableStrategy struct{}

func (BestAvailableStrategy) Select(candidates []models.Player) models.Player {
	return candidates[0]
}

// RandomStrategy drafts a uniformly random candidate. Useful for mock drafts
// and load tests where deterministic boards are undesirable.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy constructs a RandomStrategy with its own seed.
func NewRandomStrategy() *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *RandomStrategy) Select(candidates []models.Player) models.Player {
	return candidates[s.rng.Intn(len(candidates))]
}
