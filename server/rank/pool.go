package rank

import "context"

// pool restricts pairing to a fixed, externally supplied id set, walking it
// in score order. Items that reach the saturation count of wins or losses are
// skipped for the rest of the session without leaving the pool.
type pool struct {
	base
}

func newPool(src Source, opts Options) *pool {
	return &pool{base: newBase("pool", src, opts)}
}

func (p *pool) saturated(id int64) bool {
	return p.winCounts[id] >= p.opts.SaturationCount ||
		p.lossCounts[id] >= p.opts.SaturationCount
}

func (p *pool) NextPair(ctx context.Context) (*Item, *Item, error) {
	q := p.eligible(Query{
		Order:   OrderScoreDesc,
		Include: p.opts.PoolIDs,
	})
	items, err := p.src.Items(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	first := p.carry()
	if first != nil && p.saturated(first.ID) {
		p.dropCarry()
		first = nil
	}
	for i := range items {
		t := &items[i]
		if p.saturated(t.ID) {
			continue
		}
		if first == nil {
			first = t
			continue
		}
		if t.ID == first.ID || p.rounds.PossiblyContains(first.ID, t.ID) {
			continue
		}
		return first, t, nil
	}
	return nil, nil, nil
}
