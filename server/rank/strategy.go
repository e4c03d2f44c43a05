package rank

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// errPoolExhausted is strategy-internal: it marks a population too small to
// pair, and surfaces to the driver as a plain "no pair available".
var errPoolExhausted = errors.New("rank: eligible pool exhausted")

// Strategy selects the next pair to show and absorbs verdicts. One instance
// serves one rating session; implementations are not safe for concurrent use
// (the driver is strictly request/response).
type Strategy interface {
	Name() string

	// NextPair returns the next comparison, or (nil, nil, nil) when no valid
	// pair can be found after bounded retries, signalling the end of the session.
	NextPair(ctx context.Context) (*Item, *Item, error)

	// NewScore computes the post-verdict scores for left and right. The
	// default delegates to the Elo model; Bisect overrides it.
	NewScore(left, right Item, o Outcome) (float64, float64)

	// RegisterRating updates bookkeeping. Called exactly once per verdict,
	// after the driver has persisted the new scores.
	RegisterRating(winner, loser Item, draw bool)
}

// Options tunes a strategy. Zero values take the session defaults.
type Options struct {
	StreakCap       int           // drop the carried winner at this streak (default 5)
	Retries         int           // pairing attempts before giving up (default 3)
	Staleness       time.Duration // skip items rated within this window (default 15m)
	SaturationCount int           // pool: skip items at this many wins or losses (default 3)
	TopWindow       int           // toprated: sample from this many top scorers (default 30)
	TopStaleness    time.Duration // toprated: staleness window (default 30m)
	SweepPoolHigh   int           // sweep: switch to the losers pool above this size (default 10)
	SweepPoolLow    int           // sweep: switch back to random below this size (default 2)
	DisqualifyAfter int           // losses minus wins that disqualifies (default 2)
	EloK            float64       // sensitivity for the default score model (default 2)
	BisectK         float64       // reduced sensitivity for bisect updates (default 1)
	ScoreFloor      float64       // bisect winner margin over the loser (default 0.01)
	BisectTop       bool          // bisect: pick pivots from the midpoint rank
	PoolIDs         []int64       // pool: the fixed candidate id set
	MinScore        *float64      // optional population restriction
	MaxScore        *float64
	Rand            *rand.Rand // deterministic sampling in tests; nil = global
}

func (o Options) withDefaults() Options {
	if o.StreakCap == 0 {
		o.StreakCap = 5
	}
	if o.Retries == 0 {
		o.Retries = 3
	}
	if o.Staleness == 0 {
		o.Staleness = 15 * time.Minute
	}
	if o.SaturationCount == 0 {
		o.SaturationCount = 3
	}
	if o.TopWindow == 0 {
		o.TopWindow = 30
	}
	if o.TopStaleness == 0 {
		o.TopStaleness = 30 * time.Minute
	}
	if o.SweepPoolHigh == 0 {
		o.SweepPoolHigh = 10
	}
	if o.SweepPoolLow == 0 {
		o.SweepPoolLow = 2
	}
	if o.DisqualifyAfter == 0 {
		o.DisqualifyAfter = 2
	}
	if o.EloK == 0 {
		o.EloK = DefaultK
	}
	if o.BisectK == 0 {
		o.BisectK = 1
	}
	if o.ScoreFloor == 0 {
		o.ScoreFloor = 0.01
	}
	return o
}

// New builds the named strategy over src. Names: keepwinner, pool, toprated,
// sweep, bisect.
func New(name string, src Source, opts Options) (Strategy, error) {
	opts = opts.withDefaults()
	switch name {
	case "keepwinner":
		return &keepWinner{base: newBase(name, src, opts)}, nil
	case "pool":
		if len(opts.PoolIDs) == 0 {
			return nil, fmt.Errorf("rank: pool strategy needs a candidate id set")
		}
		return newPool(src, opts), nil
	case "toprated":
		return &topRated{base: newBase(name, src, opts)}, nil
	case "sweep":
		return newSweep(src, opts), nil
	case "bisect":
		return &bisect{base: newBase(name, src, opts)}, nil
	default:
		return nil, fmt.Errorf("rank: unknown strategy %q", name)
	}
}

// base is the bookkeeping substrate shared by every variant: the session
// round filter, win/loss sets and counters, streaks, and the carried winner.
type base struct {
	name string
	src  Source
	opts Options

	rounds     *RoundFilter
	winners    map[int64]struct{} // ids that have won at least once
	losers     map[int64]struct{} // ids that have lost at least once
	winCounts  map[int64]int
	lossCounts map[int64]int

	winStreak  int
	lossStreak int
	prevWinner int64
	prevLoser  int64
	carried    *Item // last winner, offered as one side of the next pair
}

func newBase(name string, src Source, opts Options) base {
	return base{
		name:       name,
		src:        src,
		opts:       opts,
		rounds:     NewSessionRoundFilter(),
		winners:    make(map[int64]struct{}),
		losers:     make(map[int64]struct{}),
		winCounts:  make(map[int64]int),
		lossCounts: make(map[int64]int),
	}
}

func (b *base) Name() string { return b.name }

func (b *base) NewScore(left, right Item, o Outcome) (float64, float64) {
	return NewScore(left.Score, right.Score, o.Value(), b.opts.EloK)
}

// RegisterRating applies the shared counter update. Draws only mark the pair
// as shown; they carry no win/loss information.
func (b *base) RegisterRating(winner, loser Item, draw bool) {
	b.rounds.Add(winner.ID, loser.ID)
	if draw {
		return
	}

	b.winCounts[winner.ID]++
	if winner.ID == b.prevWinner {
		b.winStreak++
	} else {
		b.winStreak = 1
	}
	b.prevWinner = winner.ID

	b.lossCounts[loser.ID]++
	if loser.ID == b.prevLoser {
		b.lossStreak++
	} else {
		b.lossStreak = 1
	}
	b.prevLoser = loser.ID

	b.winners[winner.ID] = struct{}{}
	b.losers[loser.ID] = struct{}{}

	w := winner
	b.carried = &w
}

// carry returns the prior winner as a candidate, unless its streak has hit
// the cap. One track must not monopolize the session.
func (b *base) carry() *Item {
	if b.carried == nil || b.winStreak >= b.opts.StreakCap {
		return nil
	}
	return b.carried
}

func (b *base) dropCarry() {
	b.carried = nil
	b.winStreak = 0
}

// disqualified returns the ids whose session losses exceed their wins by the
// configured margin. Recomputed on demand, never stored.
func (b *base) disqualified() []int64 {
	var out []int64
	for id, losses := range b.lossCounts {
		if losses-b.winCounts[id] >= b.opts.DisqualifyAfter {
			out = append(out, id)
		}
	}
	return out
}

// eligible applies the session-wide restrictions every query must respect:
// disqualified ids and the optional score range.
func (b *base) eligible(q Query) Query {
	if dq := b.disqualified(); len(dq) > 0 {
		q.Exclude = append(append([]int64{}, q.Exclude...), dq...)
	}
	if q.MinScore == nil {
		q.MinScore = b.opts.MinScore
	}
	if q.MaxScore == nil {
		q.MaxScore = b.opts.MaxScore
	}
	return q
}

func (b *base) intn(n int) int {
	if b.opts.Rand != nil {
		return b.opts.Rand.Intn(n)
	}
	return rand.Intn(n)
}

// keepWinner is the baseline strategy: the prior winner (while under the
// streak cap) against one fresh random sample from the eligible pool.
type keepWinner struct {
	base
}

func (k *keepWinner) NextPair(ctx context.Context) (*Item, *Item, error) {
	for try := 0; try < k.opts.Retries; try++ {
		a := k.carry()
		need := 2
		var exclude []int64
		if a != nil {
			need = 1
			exclude = []int64{a.ID}
		}

		q := k.eligible(Query{
			Order:      OrderRandom,
			Limit:      need,
			Exclude:    exclude,
			NotRatedIn: k.opts.Staleness,
		})
		items, err := k.src.Items(ctx, q)
		if err != nil {
			return nil, nil, err
		}
		if len(items) < need {
			if a != nil {
				// The carried winner may be blocking the only viable pair.
				k.dropCarry()
				continue
			}
			return nil, nil, nil
		}

		left, right := a, &items[0]
		if left == nil {
			left, right = &items[0], &items[1]
		}
		if k.rounds.PossiblyContains(left.ID, right.ID) {
			k.dropCarry()
			continue
		}
		return left, right, nil
	}
	return nil, nil, nil
}
