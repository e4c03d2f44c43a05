package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"track-duel/server/rank"
	"track-duel/server/store"
)

// Session drives one strategy instance: ask for a pair, take the verdict,
// persist the new scores, then let the strategy update its bookkeeping. The
// mutex only matters in serve mode, where HTTP handlers share the session.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	mu    sync.Mutex
	db    *store.DB
	strat rank.Strategy
	left  *rank.Item
	right *rank.Item

	Rounds int
	Draws  int
}

func NewSession(db *store.DB, strategy string, opts rank.Options) (*Session, error) {
	strat, err := rank.New(strategy, db, opts)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:      uuid.New(),
		Started: time.Now(),
		db:      db,
		strat:   strat,
	}, nil
}

func (s *Session) Strategy() string { return s.strat.Name() }

// NextPair returns the next comparison, or (nil, nil, nil) when the session
// is over. The same pair stays pending until Rate or Skip is called.
func (s *Session) NextPair(ctx context.Context) (*rank.Item, *rank.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.left != nil && s.right != nil {
		return s.left, s.right, nil
	}
	a, b, err := s.strat.NextPair(ctx)
	if err != nil {
		return nil, nil, err
	}
	if a == nil || b == nil {
		return nil, nil, nil
	}
	if a.ID == b.ID {
		panic(fmt.Sprintf("session: strategy %s paired track %d with itself", s.strat.Name(), a.ID))
	}
	s.left, s.right = a, b
	return a, b, nil
}

// Rate applies a verdict on the pending pair: new scores from the strategy's
// score model, persisted in one transaction, then bookkeeping on the
// refreshed items.
func (s *Session) Rate(ctx context.Context, o rank.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate(ctx, o)
}

func (s *Session) rate(ctx context.Context, o rank.Outcome) error {
	if s.left == nil || s.right == nil {
		return fmt.Errorf("session: no pair pending")
	}
	left, right := *s.left, *s.right

	leftScore, rightScore := s.strat.NewScore(left, right, o)

	winner, loser := left, right
	winnerScore, loserScore := leftScore, rightScore
	if o == rank.Lose {
		winner, loser = right, left
		winnerScore, loserScore = rightScore, leftScore
	}
	draw := o == rank.Draw

	if err := s.db.ApplyRating(ctx, s.ID, winner.ID, loser.ID, draw, winnerScore, loserScore); err != nil {
		return err
	}

	// Bookkeeping sees the stored state, not the pre-verdict snapshot.
	wIt, err := s.db.ItemByID(ctx, winner.ID)
	if err != nil {
		return err
	}
	lIt, err := s.db.ItemByID(ctx, loser.ID)
	if err != nil {
		return err
	}
	s.strat.RegisterRating(wIt, lIt, draw)

	s.Rounds++
	if draw {
		s.Draws++
	}
	s.left, s.right = nil, nil
	return nil
}

// RateWinner resolves a verdict given by winner id, as the HTTP surface
// reports it.
func (s *Session) RateWinner(ctx context.Context, winnerID int64, draw bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.left == nil || s.right == nil {
		return fmt.Errorf("session: no pair pending")
	}

	var o rank.Outcome
	switch {
	case draw:
		o = rank.Draw
	case winnerID == s.left.ID:
		o = rank.Win
	case winnerID == s.right.ID:
		o = rank.Lose
	default:
		return fmt.Errorf("session: track %d is not in the pending pair", winnerID)
	}
	return s.rate(ctx, o)
}

// Skip abandons the pending pair without a verdict.
func (s *Session) Skip() {
	s.mu.Lock()
	s.left, s.right = nil, nil
	s.mu.Unlock()
}
