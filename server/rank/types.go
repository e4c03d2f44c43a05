// Package rank is the pairwise ranking engine: an Elo-style score model, a
// bloom-filter round deduplicator, and a family of pair-selection strategies
// that decide which two tracks to show next so the ranking converges with as
// few human judgments as possible.
package rank

import (
	"context"
	"time"
)

// Item is a transient reference to a stored track. The engine never owns
// items; it reads them through a Source and hands score updates back to the
// caller to persist.
type Item struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Artist      string     `json:"artist"`
	Album       string     `json:"album"`
	Score       *float64   `json:"score"`         // nil until first rated
	RatingCount int        `json:"rating_count"`
	LastRatedAt *time.Time `json:"last_rated_at"` // nil until first rated
}

// ScoreOr returns the item's score, or def when the item is unrated.
func (it Item) ScoreOr(def float64) float64 {
	if it.Score == nil {
		return def
	}
	return *it.Score
}

// Outcome is the user's verdict on a pair, relative to the left item.
type Outcome int

const (
	Win  Outcome = iota // left beats right
	Lose                // right beats left
	Draw
)

// Value maps the outcome to the score model's expected-result scale.
func (o Outcome) Value() float64 {
	switch o {
	case Win:
		return 1.0
	case Lose:
		return 0.0
	default:
		return 0.5
	}
}

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Lose:
		return "lose"
	default:
		return "draw"
	}
}

// Order selects the row ordering of a Source query.
type Order int

const (
	OrderRandom     Order = iota
	OrderScoreDesc        // rank order: best score first, unrated last
	OrderLeastRated       // fewest ratings first
)

// Query is the immutable option set for one Source call. The zero value means
// "everything, unordered, no limit".
type Query struct {
	Order      Order
	Limit      int // 0 = no limit
	Offset     int
	Include    []int64       // restrict to these ids when non-empty
	Exclude    []int64       // never return these ids
	NotRatedIn time.Duration // skip items rated within this window; 0 = off
	RatedOnly  bool          // require a score
	MinScore   *float64
	MaxScore   *float64
}

// Source is the single capability the engine needs from the item store.
type Source interface {
	// Items returns tracks matching q, in q's order.
	Items(ctx context.Context, q Query) ([]Item, error)
	// Count returns the number of tracks matching q, ignoring limit/offset.
	Count(ctx context.Context, q Query) (int, error)
	// ItemByID fetches one track with its current score.
	ItemByID(ctx context.Context, id int64) (Item, error)
}
