package ops

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Rating   *int   `json:"rating,omitempty"` // default: cfg.InitialRating
}

// CreateOutput contains the result of the Create operation.
type CreateOutput struct {
	Name *name.Name `json:"name"`
}

// Create validates and stores a new name.
// Returns NAME_ALREADY_EXISTS if the canonical text is taken in the category.
func Create(ctx context.Context, database *sql.DB, cfg *config.Config, input CreateInput) (*CreateOutput, error) {
	n, err := insertFields(ctx, database, cfg, createFields(cfg, input))
	if err != nil {
		return nil, err
	}
	return &CreateOutput{Name: n}, nil
}

func createFields(cfg *config.Config, input CreateInput) name.Fields {
	r := cfg.InitialRating
	if input.Rating != nil {
		r = *input.Rating
	}
	return name.Fields{
		Text:     input.Text,
		Category: name.Category(input.Category),
		Rating:   r,
	}
}

// insertFields validates fields and inserts a fresh record.
// Each set function may fill in state carried over from elsewhere (e.g. an import).
func insertFields(ctx context.Context, q db.Querier, cfg *config.Config, fields name.Fields, set ...func(*name.Name)) (*name.Name, error) {
	if c, ok := name.ParseCategory(string(fields.Category)); ok {
		fields.Category = c
	}
	if err := fields.Validate(cfg.MinRating, cfg.AllowedSpecialChars); err != nil {
		return nil, err
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()
	n := &name.Name{
		ID:        id,
		Text:      fields.Text,
		Category:  fields.Category,
		Rating:    fields.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, fn := range set {
		fn(n)
	}
	if err := db.Insert(ctx, q, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Item statuses reported by batch operations.
const (
	ItemCreated = "created"
	ItemSkipped = "skipped"
	ItemFailed  = "failed"
)

// ItemResult is the outcome of one item in a batch create.
type ItemResult struct {
	Index    int    `json:"index"`
	Status   string `json:"status"`
	ID       string `json:"id,omitempty"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CreateManyInput contains parameters for the CreateMany operation.
type CreateManyInput struct {
	Items []CreateInput `json:"items"`
}

// CreateManyOutput reports every item's outcome.
type CreateManyOutput struct {
	Created int          `json:"created"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
	Items   []ItemResult `json:"items"`
}

func (o *CreateManyOutput) add(r ItemResult) {
	switch r.Status {
	case ItemCreated:
		o.Created++
	case ItemSkipped:
		o.Skipped++
	default:
		o.Failed++
	}
	o.Items = append(o.Items, r)
}

// CreateMany creates each item independently.
// A failed item never aborts the batch; every item's outcome is reported.
func CreateMany(ctx context.Context, database *sql.DB, cfg *config.Config, input CreateManyInput) (*CreateManyOutput, error) {
	if len(input.Items) == 0 {
		return nil, errors.NewInvalidRequest("items must not be empty")
	}
	if len(input.Items) > MaxBatchItems {
		return nil, errors.NewInvalidRequest("too many items (max 500)")
	}

	fields := make([]name.Fields, len(input.Items))
	for i, item := range input.Items {
		fields[i] = createFields(cfg, item)
	}
	return createBatch(ctx, database, cfg, fields, false), nil
}

// createBatch inserts fields one by one. With skipDuplicates, an existing
// (text, category) is reported as skipped instead of failed.
// Items left unprocessed after ctx is done are reported as cancelled.
func createBatch(ctx context.Context, q db.Querier, cfg *config.Config, fields []name.Fields, skipDuplicates bool) *CreateManyOutput {
	logger := zerolog.Ctx(ctx)
	out := &CreateManyOutput{Items: make([]ItemResult, 0, len(fields))}

	for i, f := range fields {
		res := ItemResult{Index: i, Text: f.Text, Category: string(f.Category)}

		if ctx.Err() != nil {
			cancelled := errors.NewCancelled("batch create")
			res.Status, res.Code, res.Message = ItemFailed, string(cancelled.Code), cancelled.Message
			out.add(res)
			continue
		}

		n, err := insertFields(ctx, q, cfg, f)
		switch {
		case err == nil:
			res.Status, res.ID, res.Text = ItemCreated, n.ID, n.Text
		case skipDuplicates && errors.Is(err, errors.ErrNameAlreadyExists):
			res.Status = ItemSkipped
			logger.Debug().Str("text", f.Text).Str("category", string(f.Category)).Msg("skipping existing name")
		default:
			res.Status, res.Code, res.Message = ItemFailed, string(errors.CodeOf(err)), errorMessage(err)
			logger.Warn().Err(err).Int("index", i).Str("text", f.Text).Msg("create failed")
		}
		out.add(res)
	}
	return out
}

// errorMessage returns the caller-facing message of err.
func errorMessage(err error) string {
	var cErr *errors.CradleError
	if stderrors.As(err, &cErr) {
		return cErr.Message
	}
	return err.Error()
}

// LoadDefaults inserts the bundled default names, skipping any that already exist.
// A non-empty category limits the load to that category.
func LoadDefaults(ctx context.Context, database *sql.DB, cfg *config.Config, category string) (*CreateManyOutput, error) {
	c, err := parseOptionalCategory(category)
	if err != nil {
		return nil, err
	}
	out := createBatch(ctx, database, cfg, defaultFields(cfg, c), true)
	zerolog.Ctx(ctx).Info().
		Int("created", out.Created).
		Int("skipped", out.Skipped).
		Int("failed", out.Failed).
		Msg("default names loaded")
	return out, nil
}

func defaultFields(cfg *config.Config, category name.Category) []name.Fields {
	all := name.Defaults(cfg.InitialRating)
	if category == "" {
		return all
	}
	out := make([]name.Fields, 0, len(all))
	for _, f := range all {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}
