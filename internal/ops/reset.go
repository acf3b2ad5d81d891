package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
)

// ResetMode selects what Reset does.
type ResetMode string

const (
	ResetClear    ResetMode = "clear"    // delete every name
	ResetDefaults ResetMode = "defaults" // delete every name, then load the defaults
	ResetRatings  ResetMode = "ratings"  // keep names, restore initial ratings and zero evaluations
)

// ResetInput contains parameters for the Reset operation.
type ResetInput struct {
	Mode     ResetMode `json:"mode"`
	Category string    `json:"category,omitempty"` // optional; empty resets both
}

// ResetOutput contains the result of the Reset operation.
type ResetOutput struct {
	Mode    ResetMode         `json:"mode"`
	Deleted int               `json:"deleted"`
	Reset   int               `json:"reset"`
	Loaded  *CreateManyOutput `json:"loaded,omitempty"`
	Message string            `json:"message"`
}

// Reset clears the store, restores the defaults, or resets ratings.
// Each mode runs in one transaction, so it applies completely or not at all.
func Reset(ctx context.Context, database *sql.DB, cfg *config.Config, input ResetInput) (*ResetOutput, error) {
	mode := ResetMode(strings.ToLower(strings.TrimSpace(string(input.Mode))))
	if mode != ResetClear && mode != ResetDefaults && mode != ResetRatings {
		return nil, errors.NewInvalidRequest("mode must be one of: clear, defaults, ratings")
	}
	category, err := parseOptionalCategory(input.Category)
	if err != nil {
		return nil, err
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStoreFailure(err)
	}
	defer func() { _ = tx.Rollback() }()

	out := &ResetOutput{Mode: mode}
	switch mode {
	case ResetRatings:
		out.Reset, err = db.ResetRatings(ctx, tx, category, cfg.InitialRating)
		if err != nil {
			return nil, err
		}
	default:
		out.Deleted, err = db.DeleteAll(ctx, tx, category)
		if err != nil {
			return nil, err
		}
		if mode == ResetDefaults {
			out.Loaded = createBatch(ctx, tx, cfg, defaultFields(cfg, category), true)
			if out.Loaded.Failed > 0 {
				return nil, errors.NewInternal(fmt.Errorf("%d default names failed to load", out.Loaded.Failed))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewStoreFailure(err)
	}

	out.Message = formatResetMessage(out, input.Category)
	zerolog.Ctx(ctx).Info().Str("mode", string(mode)).Str("category", string(category)).Msg(out.Message)
	return out, nil
}

// formatResetMessage creates a human-readable message for the reset result.
func formatResetMessage(out *ResetOutput, category string) string {
	scope := "all categories"
	if category != "" {
		scope = fmt.Sprintf("category %q", strings.ToLower(strings.TrimSpace(category)))
	}
	switch out.Mode {
	case ResetRatings:
		return fmt.Sprintf("Reset ratings of %d %s in %s", out.Reset, plural(out.Reset, "name"), scope)
	case ResetDefaults:
		return fmt.Sprintf("Deleted %d and loaded %d default %s in %s",
			out.Deleted, out.Loaded.Created, plural(out.Loaded.Created, "name"), scope)
	default:
		return fmt.Sprintf("Deleted %d %s in %s", out.Deleted, plural(out.Deleted, "name"), scope)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// StatsOutput contains per-category aggregates.
type StatsOutput struct {
	Categories []db.CategoryStats `json:"categories"`
	Total      int                `json:"total"`
}

// Stats summarizes the store per category.
func Stats(ctx context.Context, database *sql.DB) (*StatsOutput, error) {
	stats, err := db.Stats(ctx, database)
	if err != nil {
		return nil, err
	}
	out := &StatsOutput{Categories: stats}
	if out.Categories == nil {
		out.Categories = []db.CategoryStats{}
	}
	for _, s := range stats {
		out.Total += s.Total
	}
	return out, nil
}
