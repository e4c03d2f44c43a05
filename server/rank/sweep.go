package rank

import "context"

// sweep works the losing end of the population. Tracks that have lost at
// least once without ever winning form a losers pool; a track that takes a
// third loss while still in that pool is treated as settled and evicted from
// consideration. Pairing flips between drawing from the pool and drawing from
// the whole population, with a hysteresis band so the mode does not thrash.
type sweep struct {
	base
	loserCounts map[int64]int
	usePool     bool
}

func newSweep(src Source, opts Options) *sweep {
	return &sweep{
		base:        newBase("sweep", src, opts),
		loserCounts: make(map[int64]int),
	}
}

func (s *sweep) RegisterRating(winner, loser Item, draw bool) {
	s.base.RegisterRating(winner, loser, draw)
	if draw {
		return
	}
	if s.loserCounts[loser.ID] >= s.opts.SaturationCount {
		// Settled: it has lost enough. Stop cycling it through the pool.
		delete(s.winners, loser.ID)
		delete(s.losers, loser.ID)
		delete(s.loserCounts, loser.ID)
		return
	}
	s.loserCounts[loser.ID]++
}

// losersPool returns the ids that have lost at least once and never won.
func (s *sweep) losersPool() []int64 {
	var out []int64
	for id := range s.losers {
		if _, won := s.winners[id]; !won {
			out = append(out, id)
		}
	}
	return out
}

func (s *sweep) NextPair(ctx context.Context) (*Item, *Item, error) {
	pool := s.losersPool()

	// Hysteresis: flip to the pool above the high mark, back to random below
	// the low mark, and keep the previous mode in between.
	if len(pool) > s.opts.SweepPoolHigh {
		s.usePool = true
	} else if len(pool) < s.opts.SweepPoolLow {
		s.usePool = false
	}

	q := Query{Order: OrderRandom, Limit: 2, NotRatedIn: s.opts.Staleness}
	if s.usePool {
		q = Query{Order: OrderRandom, Limit: 2, Include: pool}
	}
	items, err := s.src.Items(ctx, s.eligible(q))
	if err != nil {
		return nil, nil, err
	}
	if len(items) < 2 {
		return nil, nil, nil
	}
	return &items[0], &items[1], nil
}
