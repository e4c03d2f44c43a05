package rank

import "context"

// topRated samples two tracks uniformly from the top of the score order,
// skipping anything rated recently and anything that has already won this
// session. Keeps fresh high-scorers circulating instead of deadlocking on one
// leader.
type topRated struct {
	base
}

func (t *topRated) NextPair(ctx context.Context) (*Item, *Item, error) {
	exclude := make([]int64, 0, len(t.winners))
	for id := range t.winners {
		exclude = append(exclude, id)
	}

	q := t.eligible(Query{
		Order:      OrderScoreDesc,
		Limit:      t.opts.TopWindow,
		Exclude:    exclude,
		NotRatedIn: t.opts.TopStaleness,
		RatedOnly:  true,
	})
	items, err := t.src.Items(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	if len(items) < 2 {
		return nil, nil, nil
	}

	i := t.intn(len(items))
	j := t.intn(len(items) - 1)
	if j >= i {
		j++
	}
	return &items[i], &items[j], nil
}
