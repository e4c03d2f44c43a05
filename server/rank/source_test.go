package rank

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"
)

// memSource is an in-memory Source with the same query semantics as the SQL
// store, so strategies can be exercised without a database. Random order is
// driven by a seeded rand for deterministic tests.
type memSource struct {
	items []Item
	rnd   *rand.Rand
}

func newMemSource(seed int64, items ...Item) *memSource {
	return &memSource{items: items, rnd: rand.New(rand.NewSource(seed))}
}

func (m *memSource) filter(q Query) []Item {
	include := idSet(q.Include)
	exclude := idSet(q.Exclude)
	cutoff := time.Now().Add(-q.NotRatedIn)

	var out []Item
	for _, it := range m.items {
		if q.RatedOnly && it.Score == nil {
			continue
		}
		if q.MinScore != nil && it.ScoreOr(math.Inf(-1)) < *q.MinScore {
			continue
		}
		if q.MaxScore != nil && it.ScoreOr(math.Inf(1)) > *q.MaxScore {
			continue
		}
		if q.NotRatedIn > 0 && it.LastRatedAt != nil && it.LastRatedAt.After(cutoff) {
			continue
		}
		if len(include) > 0 {
			if _, ok := include[it.ID]; !ok {
				continue
			}
		}
		if _, ok := exclude[it.ID]; ok {
			continue
		}
		out = append(out, it)
	}
	return out
}

func (m *memSource) Items(_ context.Context, q Query) ([]Item, error) {
	out := m.filter(q)
	switch q.Order {
	case OrderScoreDesc:
		sort.Slice(out, func(i, j int) bool {
			si, sj := out[i].ScoreOr(math.Inf(-1)), out[j].ScoreOr(math.Inf(-1))
			if si != sj {
				return si > sj
			}
			return out[i].ID < out[j].ID
		})
	case OrderLeastRated:
		sort.Slice(out, func(i, j int) bool {
			if out[i].RatingCount != out[j].RatingCount {
				return out[i].RatingCount < out[j].RatingCount
			}
			return out[i].ID < out[j].ID
		})
	default:
		m.rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memSource) Count(_ context.Context, q Query) (int, error) {
	return len(m.filter(q)), nil
}

func (m *memSource) ItemByID(_ context.Context, id int64) (Item, error) {
	for _, it := range m.items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("memsource: no item %d", id)
}

// apply mimics the driver's persistence step: store both scores, bump the
// counters, stamp the rating time.
func (m *memSource) apply(aID, bID int64, aScore, bScore float64) {
	now := time.Now()
	for i := range m.items {
		switch m.items[i].ID {
		case aID:
			s := aScore
			m.items[i].Score = &s
			m.items[i].RatingCount++
			m.items[i].LastRatedAt = &now
		case bID:
			s := bScore
			m.items[i].Score = &s
			m.items[i].RatingCount++
			m.items[i].LastRatedAt = &now
		}
	}
}

func idSet(ids []int64) map[int64]struct{} {
	if len(ids) == 0 {
		return nil
	}
	s := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// scored builds a rated test item.
func scored(id int64, score float64) Item {
	s := score
	return Item{ID: id, Title: fmt.Sprintf("track-%d", id), Score: &s}
}

// unscored builds a never-rated test item.
func unscored(id int64) Item {
	return Item{ID: id, Title: fmt.Sprintf("track-%d", id)}
}
