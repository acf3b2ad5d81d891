package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// FetchInput addresses the name to fetch.
type FetchInput = Ref

// FetchOutput contains the result of the Fetch operation.
// Absence is reported with Found=false rather than an error.
type FetchOutput struct {
	Found bool       `json:"found"`
	Name  *name.Name `json:"name,omitempty"`
}

// Fetch retrieves a name by ID or by text within a category.
func Fetch(ctx context.Context, database *sql.DB, cfg *config.Config, input FetchInput) (*FetchOutput, error) {
	addr, err := resolveRef(input, cfg)
	if err != nil {
		return nil, err
	}
	n, found, err := lookup(ctx, database, addr)
	if err != nil {
		return nil, err
	}
	return &FetchOutput{Found: found, Name: n}, nil
}

// lookup reads the addressed name. A missing name is found=false, not an error.
func lookup(ctx context.Context, q db.Querier, addr *address) (*name.Name, bool, error) {
	if !addr.byID {
		return db.GetByText(ctx, q, addr.category, addr.text)
	}
	n, err := db.GetByID(ctx, q, addr.id)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}
