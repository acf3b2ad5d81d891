package ops

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/name"
	"github.com/hpungsan/cradle/internal/session"
)

// RoundStore adapts the SQLite store to session.Store.
type RoundStore struct {
	DB *sql.DB
}

// Population reads the whole category in one query.
func (s RoundStore) Population(ctx context.Context, category name.Category) ([]name.Name, error) {
	return db.List(ctx, s.DB, db.ListFilters{Category: category}, db.OrderCreated, 0, 0)
}

// Evaluate applies next to the stored rating in a single transaction.
func (s RoundStore) Evaluate(ctx context.Context, id string, next func(current int) int) (*name.Name, error) {
	return db.Evaluate(ctx, s.DB, id, next)
}

// NewSession returns a round session for category configured from cfg.
func NewSession(database *sql.DB, cfg *config.Config, category string, logger zerolog.Logger, opts ...session.Option) (*session.Session, error) {
	c, err := parseCategory(category)
	if err != nil {
		return nil, err
	}
	base := []session.Option{
		session.WithCalculator(Calculator(cfg)),
		session.WithMaxSelections(cfg.MaxSelections),
		session.WithRoundSize(cfg.RoundSize),
		session.WithLogger(logger),
	}
	return session.New(RoundStore{DB: database}, c, append(base, opts...)...), nil
}
