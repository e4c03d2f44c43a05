package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"track-duel/server/rank"
)

func TestBuildTrackSQLBareQuery(t *testing.T) {
	sql, args := buildTrackSQL("SELECT id FROM tracks", rank.Query{}, time.Now(), false)
	assert.Equal(t, "SELECT id FROM tracks ORDER BY random()", sql)
	assert.Empty(t, args)
}

func TestBuildTrackSQLFullClauseSet(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	min, max := 800.0, 1600.0
	q := rank.Query{
		Order:      rank.OrderScoreDesc,
		Limit:      5,
		Offset:     10,
		Include:    []int64{1, 2, 3},
		Exclude:    []int64{4},
		NotRatedIn: 15 * time.Minute,
		RatedOnly:  true,
		MinScore:   &min,
		MaxScore:   &max,
	}

	sql, args := buildTrackSQL("SELECT id FROM tracks", q, now, false)
	assert.Equal(t,
		"SELECT id FROM tracks"+
			" WHERE score IS NOT NULL"+
			" AND score >= $1"+
			" AND score <= $2"+
			" AND (last_rated_at IS NULL OR last_rated_at < $3)"+
			" AND id = ANY($4)"+
			" AND NOT (id = ANY($5))"+
			" ORDER BY score DESC NULLS LAST, id"+
			" LIMIT 5 OFFSET 10",
		sql)
	assert.Equal(t, []any{
		800.0,
		1600.0,
		now.Add(-15 * time.Minute),
		[]int64{1, 2, 3},
		[]int64{4},
	}, args)
}

func TestBuildTrackSQLCountingSkipsOrderAndLimit(t *testing.T) {
	q := rank.Query{Order: rank.OrderScoreDesc, Limit: 5, RatedOnly: true}
	sql, _ := buildTrackSQL("SELECT count(*) FROM tracks", q, time.Now(), true)
	assert.Equal(t, "SELECT count(*) FROM tracks WHERE score IS NOT NULL", sql)
}

func TestBuildTrackSQLLeastRatedOrder(t *testing.T) {
	sql, _ := buildTrackSQL("SELECT id FROM tracks", rank.Query{Order: rank.OrderLeastRated, Limit: 1}, time.Now(), false)
	assert.Equal(t, "SELECT id FROM tracks ORDER BY rating_count ASC, last_rated_at ASC NULLS FIRST, id LIMIT 1", sql)
}
