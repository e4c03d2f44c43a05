package store

import (
	"fmt"
	"strings"
	"time"

	"track-duel/server/rank"
)

const trackColumns = "id, title, artist, album, score, rating_count, last_rated_at"

// buildTrackSQL assembles the WHERE/ORDER/LIMIT tail for a rank.Query and the
// positional args that go with it. Pure so it can be unit tested without a
// database; now is injected for the staleness cutoff.
func buildTrackSQL(sel string, q rank.Query, now time.Time, counting bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1))
	}

	if q.RatedOnly {
		conds = append(conds, "score IS NOT NULL")
	}
	if q.MinScore != nil {
		add("score >= ?", *q.MinScore)
	}
	if q.MaxScore != nil {
		add("score <= ?", *q.MaxScore)
	}
	if q.NotRatedIn > 0 {
		add("(last_rated_at IS NULL OR last_rated_at < ?)", now.Add(-q.NotRatedIn))
	}
	if len(q.Include) > 0 {
		add("id = ANY(?)", q.Include)
	}
	if len(q.Exclude) > 0 {
		add("NOT (id = ANY(?))", q.Exclude)
	}

	var b strings.Builder
	b.WriteString(sel)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	if !counting {
		switch q.Order {
		case rank.OrderScoreDesc:
			b.WriteString(" ORDER BY score DESC NULLS LAST, id")
		case rank.OrderLeastRated:
			b.WriteString(" ORDER BY rating_count ASC, last_rated_at ASC NULLS FIRST, id")
		default:
			b.WriteString(" ORDER BY random()")
		}
		if q.Limit > 0 {
			fmt.Fprintf(&b, " LIMIT %d", q.Limit)
		}
		if q.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", q.Offset)
		}
	}

	return b.String(), args
}
