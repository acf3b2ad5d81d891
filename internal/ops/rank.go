package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/name"
)

// RankInput addresses a name and the category to rank it in.
// Category is required even when addressing by ID.
type RankInput = Ref

// RankOutput contains the result of the Rank operation.
type RankOutput struct {
	Found bool       `json:"found"`
	Rank  int        `json:"rank,omitempty"`
	Total int        `json:"total,omitempty"`
	Name  *name.Name `json:"name,omitempty"`
}

// Rank returns the 1-based position of a name within its category by
// descending rating, read from the current store state.
func Rank(ctx context.Context, database *sql.DB, cfg *config.Config, input RankInput) (*RankOutput, error) {
	category, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	addr, err := resolveRef(input, cfg)
	if err != nil {
		return nil, err
	}

	n, found, err := lookup(ctx, database, addr)
	if err != nil {
		return nil, err
	}
	if !found || n.Category != category {
		return &RankOutput{Found: false}, nil
	}

	rank, total, found, err := db.Rank(ctx, database, category, n.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		// Deleted between the lookup and the rank query.
		return &RankOutput{Found: false}, nil
	}
	return &RankOutput{Found: true, Rank: rank, Total: total, Name: n}, nil
}
