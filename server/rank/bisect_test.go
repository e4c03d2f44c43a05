package rank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descendingTracks(n int) []Item {
	items := make([]Item, 0, n)
	for i := int64(1); i <= int64(n); i++ {
		items = append(items, scored(i, 1900-100*float64(i)))
	}
	return items
}

// Walks a full bisection over eight tracks with a consistent comparator. The
// pivot is the least-rated track (id 1, the top scorer); each verdict must
// halve the span until the terminal pair at the span edges comes up.
func TestBisectNarrowsSpanToTerminalPair(t *testing.T) {
	src := newMemSource(53, descendingTracks(8)...)
	s, err := New("bisect", src, testOpts(53))
	require.NoError(t, err)
	bs := s.(*bisect)
	ctx := context.Background()

	// Round 1: pivot vs the challenger at the midpoint of the remaining ranks.
	left, right, err := s.NextPair(ctx)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, int64(1), left.ID)
	assert.Equal(t, int64(6), right.ID)
	assert.Equal(t, [2]int{0, 8}, bs.span)

	// Pivot wins: its rank lies in the better half.
	s.RegisterRating(*left, *right, false)
	assert.Equal(t, [2]int{0, 4}, bs.span)

	// Round 2: midpoint of [0,4) is rank 2; the challenger there is id 4.
	left, right, err = s.NextPair(ctx)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, int64(1), left.ID)
	assert.Equal(t, int64(4), right.ID)

	// Pivot loses: the worse half.
	s.RegisterRating(*right, *left, false)
	assert.Equal(t, [2]int{2, 4}, bs.span)

	// Width two: the terminal comparison is the pair at ranks 2 and 3.
	left, right, err = s.NextPair(ctx)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, int64(3), left.ID)
	assert.Equal(t, int64(4), right.ID)
}

func TestBisectDrawLeavesSpanAlone(t *testing.T) {
	src := newMemSource(59, descendingTracks(8)...)
	s, err := New("bisect", src, testOpts(59))
	require.NoError(t, err)
	bs := s.(*bisect)

	left, right, err := s.NextPair(context.Background())
	require.NoError(t, err)
	require.NotNil(t, left)

	s.RegisterRating(*left, *right, true)
	assert.Equal(t, [2]int{0, 8}, bs.span)
}

func TestBisectReplacesPivotAfterTwoLosses(t *testing.T) {
	src := newMemSource(61, descendingTracks(16)...)
	s, err := New("bisect", src, testOpts(61))
	require.NoError(t, err)
	bs := s.(*bisect)
	ctx := context.Background()

	left, right, err := s.NextPair(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), left.ID)
	s.RegisterRating(*right, *left, false)
	src.apply(left.ID, right.ID, left.ScoreOr(0), right.ScoreOr(0))

	left, right, err = s.NextPair(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), left.ID)
	s.RegisterRating(*right, *left, false)
	src.apply(left.ID, right.ID, left.ScoreOr(0), right.ScoreOr(0))

	// Two losses make the pivot unreliable: the next round restarts with a
	// fresh span and the least-rated remaining track as pivot.
	left, _, err = s.NextPair(ctx)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, int64(2), left.ID)
	assert.Equal(t, [2]int{0, 16}, bs.span)
}

func TestBisectTopModePicksMidRankPivot(t *testing.T) {
	src := newMemSource(67, descendingTracks(8)...)
	opts := testOpts(67)
	opts.BisectTop = true
	s, err := New("bisect", src, opts)
	require.NoError(t, err)

	left, right, err := s.NextPair(context.Background())
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, int64(5), left.ID)
	assert.Equal(t, int64(7), right.ID)
}

func TestBisectEndsSessionWhenTerminalPairAlreadyShown(t *testing.T) {
	src := newMemSource(71, descendingTracks(2)...)
	s, err := New("bisect", src, testOpts(71))
	require.NoError(t, err)
	ctx := context.Background()

	left, right, err := s.NextPair(ctx)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, int64(1), left.ID)
	assert.Equal(t, int64(2), right.ID)
	s.RegisterRating(*left, *right, false)

	// The only pair in the population has been rated.
	left, right, err = s.NextPair(ctx)
	require.NoError(t, err)
	assert.Nil(t, left)
	assert.Nil(t, right)
}

func TestBisectRefusesSinglePopulation(t *testing.T) {
	src := newMemSource(73, scored(1, 1000))
	s, err := New("bisect", src, testOpts(73))
	require.NoError(t, err)

	left, right, err := s.NextPair(context.Background())
	require.NoError(t, err)
	assert.Nil(t, left)
	assert.Nil(t, right)
}

func TestBisectSkipsUnratedTracks(t *testing.T) {
	src := newMemSource(79,
		scored(1, 1500), scored(2, 1400), scored(3, 1300), unscored(4),
	)
	s, err := New("bisect", src, testOpts(79))
	require.NoError(t, err)
	bs := s.(*bisect)

	left, right, err := s.NextPair(context.Background())
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Equal(t, [2]int{0, 3}, bs.span, "unrated tracks have no rank")
	assert.NotEqual(t, int64(4), left.ID)
	assert.NotEqual(t, int64(4), right.ID)
}

func TestBisectNewScoreKeepsWinnerAboveLoser(t *testing.T) {
	src := newMemSource(83, descendingTracks(4)...)
	s, err := New("bisect", src, testOpts(83))
	require.NoError(t, err)

	underdog := scored(10, 500)
	favorite := scored(11, 900)

	// The underdog wins but the raw delta cannot lift it past the favorite;
	// the floor puts it just above.
	l, r := s.NewScore(underdog, favorite, Win)
	assert.InDelta(t, 900.01, l, 1e-9)
	assert.Less(t, r, 900.0)
	assert.Greater(t, l, r)

	// Mirrored: the right side wins from behind.
	l, r = s.NewScore(favorite, underdog, Lose)
	assert.InDelta(t, 900.01, r, 1e-9)
	assert.Less(t, l, 900.0)
	assert.Greater(t, r, l)

	// Draws leave both scores untouched.
	l, r = s.NewScore(underdog, favorite, Draw)
	assert.Equal(t, 500.0, l)
	assert.Equal(t, 900.0, r)
}
