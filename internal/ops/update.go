package ops

import (
	"context"
	"database/sql"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// UpdateInput contains parameters for the Update operation.
// Text and category are immutable; only the fields below can change.
type UpdateInput struct {
	Ref
	IsFavorite     *bool `json:"is_favorite,omitempty"`
	Rating         *int  `json:"rating,omitempty"`
	TimesEvaluated *int  `json:"times_evaluated,omitempty"`
}

// UpdateOutput contains the result of the Update operation.
type UpdateOutput struct {
	Name *name.Name `json:"name"`
}

// Update applies in-place changes to an existing name.
func Update(ctx context.Context, database *sql.DB, cfg *config.Config, input UpdateInput) (*UpdateOutput, error) {
	addr, err := resolveRef(input.Ref, cfg)
	if err != nil {
		return nil, err
	}
	if input.IsFavorite == nil && input.Rating == nil && input.TimesEvaluated == nil {
		return nil, errors.NewInvalidRequest("at least one of is_favorite, rating, times_evaluated is required")
	}

	errs := validation.Errors{}
	if input.Rating != nil {
		errs["rating"] = validation.Validate(*input.Rating, validation.Min(cfg.MinRating))
	}
	if input.TimesEvaluated != nil {
		errs["times_evaluated"] = validation.Validate(*input.TimesEvaluated, validation.Min(0))
	}
	if err := errs.Filter(); err != nil {
		return nil, name.ValidationError(err)
	}

	id := addr.id
	if !addr.byID {
		n, found, err := lookup(ctx, database, addr)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, errors.NewNotFound(refLabel(addr))
		}
		id = n.ID
	}

	n, err := db.UpdateByID(ctx, database, id, db.Patch{
		Rating:         input.Rating,
		TimesEvaluated: input.TimesEvaluated,
		IsFavorite:     input.IsFavorite,
	}, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	return &UpdateOutput{Name: n}, nil
}

// refLabel names an address in error messages.
func refLabel(addr *address) string {
	if addr.byID {
		return addr.id
	}
	return string(addr.category) + "/" + addr.text
}
