package rank

import (
	"context"
	"fmt"
	"log"
	"math"
)

// bisect estimates one track's rank with as few verdicts as possible by
// binary-searching the score-descending order. The span [lo, hi) is the rank
// interval the pivot's true position is believed to lie in; each non-draw
// verdict against the challenger at the midpoint rank halves it. A pivot that
// takes two session losses is treated as unreliable and replaced, so one
// noisy comparator chain cannot corrupt the span.
type bisect struct {
	base
	span  [2]int // half-open rank interval, valid only while track != nil
	track *Item  // current pivot
}

// rankingQuery is the score-descending eligible ordering the span indexes
// into. Unrated tracks are excluded: they have no rank.
func (b *bisect) rankingQuery() Query {
	return b.eligible(Query{Order: OrderScoreDesc, RatedOnly: true})
}

func (b *bisect) midpoint() int {
	return (b.span[0] + b.span[1]) / 2
}

// resetTrack recomputes the span over the current eligible population and
// picks a fresh pivot: the least-recently-rated track by default, or the
// track at the midpoint rank when probing the top of the ranking.
func (b *bisect) resetTrack(ctx context.Context) error {
	n, err := b.src.Count(ctx, b.rankingQuery())
	if err != nil {
		return err
	}
	if n < 2 {
		return errPoolExhausted
	}
	b.span = [2]int{0, n}

	q := b.eligible(Query{Order: OrderLeastRated, Limit: 1})
	if b.opts.BisectTop {
		q = b.rankingQuery()
		q.Offset = b.midpoint()
		q.Limit = 1
	}
	items, err := b.src.Items(ctx, q)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errPoolExhausted
	}
	b.track = &items[0]
	log.Printf("bisect: pivot reset to %q (id %d), span [0,%d)", b.track.Title, b.track.ID, n)
	return nil
}

// itemAt returns the track at rank idx, or nil when the rank is out of range.
func (b *bisect) itemAt(ctx context.Context, idx int, excludePivot bool) (*Item, error) {
	q := b.rankingQuery()
	if excludePivot && b.track != nil {
		q.Exclude = append(q.Exclude, b.track.ID)
	}
	q.Offset = idx
	q.Limit = 1
	items, err := b.src.Items(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (b *bisect) NextPair(ctx context.Context) (*Item, *Item, error) {
	for try := 0; try < b.opts.Retries; try++ {
		if b.track == nil {
			if err := b.resetTrack(ctx); err != nil {
				return b.giveUp(err)
			}
		}

		switch width := b.span[1] - b.span[0]; {
		case width == 2:
			// Terminal comparison: the two tracks still inside the span.
			left, err := b.itemAt(ctx, b.span[0], false)
			if err != nil {
				return nil, nil, err
			}
			right, err := b.itemAt(ctx, b.span[1]-1, false)
			if err != nil {
				return nil, nil, err
			}
			if left == nil || right == nil || left.ID == right.ID {
				b.track = nil // population shifted under the span
				continue
			}
			if b.rounds.PossiblyContains(left.ID, right.ID) {
				return nil, nil, nil
			}
			b.track = left
			return left, right, nil

		case width <= 1:
			// Collapsed: nothing left to learn about this pivot.
			if err := b.resetTrack(ctx); err != nil {
				return b.giveUp(err)
			}
			continue

		default:
			if b.lossCounts[b.track.ID] >= 2 {
				if err := b.resetTrack(ctx); err != nil {
					return b.giveUp(err)
				}
				continue
			}
			// Refresh the pivot's score; earlier rounds may have moved it.
			cur, err := b.src.ItemByID(ctx, b.track.ID)
			if err != nil {
				return nil, nil, err
			}
			b.track = &cur

			for idx := b.midpoint(); idx >= 0; idx-- {
				challenger, err := b.itemAt(ctx, idx, true)
				if err != nil {
					return nil, nil, err
				}
				if challenger == nil {
					break
				}
				if !b.rounds.PossiblyContains(b.track.ID, challenger.ID) {
					return b.track, challenger, nil
				}
			}
			// Every challenger down from the midpoint has been shown.
			return nil, nil, nil
		}
	}
	return nil, nil, nil
}

func (b *bisect) giveUp(err error) (*Item, *Item, error) {
	if err == errPoolExhausted {
		return nil, nil, nil
	}
	return nil, nil, err
}

// RegisterRating narrows the span before the shared counters update: a pivot
// win means its rank is in the lower (better) half, a pivot loss the upper.
// Draws leave the span alone.
func (b *bisect) RegisterRating(winner, loser Item, draw bool) {
	if !draw && b.track != nil {
		mid := b.midpoint()
		if winner.ID == b.track.ID {
			b.span[1] = mid
		} else {
			b.span[0] = mid
		}
		if b.span[0] > b.span[1] {
			panic(fmt.Sprintf("rank: bisect span inverted [%d,%d)", b.span[0], b.span[1]))
		}
	}
	b.base.RegisterRating(winner, loser, draw)
}

// NewScore applies the reduced-sensitivity Elo update with an asymmetric
// floor: the winner never lands below the track it just beat, keeping the
// visible ranking consistent with the latest verdict even when the raw delta
// alone would not. Draws change nothing.
func (b *bisect) NewScore(left, right Item, o Outcome) (float64, float64) {
	lOld := left.ScoreOr(DefaultScore)
	rOld := right.ScoreOr(DefaultScore)
	lNew, rNew := NewScore(left.Score, right.Score, o.Value(), b.opts.BisectK)

	switch o {
	case Win:
		return math.Max(lOld, rOld+b.opts.ScoreFloor), rNew
	case Lose:
		return lNew, math.Max(rOld, lOld+b.opts.ScoreFloor)
	default:
		return lOld, rOld
	}
}
