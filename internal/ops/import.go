package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string `json:"path"`
}

// ImportItem is the outcome of one line of an import file.
type ImportItem struct {
	Line     int    `json:"line"`
	Status   string `json:"status"`
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	Category string `json:"category,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ImportOutput reports every line's outcome.
type ImportOutput struct {
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
	Items    []ImportItem `json:"items"`
}

// Import creates a new record for each line of a JSONL export file.
// Rating, evaluation count and favorite flag are carried over; IDs are not.
// Lines fail independently: a duplicate or invalid record never stops the rest.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		if _, ok := err.(*errors.CradleError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	logger := zerolog.Ctx(ctx)
	out := &ImportOutput{Items: []ImportItem{}}
	fail := func(item ImportItem, code, msg string) {
		item.Status, item.Code, item.Message = ItemFailed, code, msg
		out.Failed++
		out.Items = append(out.Items, item)
	}

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if ctx.Err() != nil {
			return out, errors.NewCancelled("import")
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec name.ExportRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			fail(ImportItem{Line: line}, "PARSE_ERROR", fmt.Sprintf("invalid JSON: %v", err))
			continue
		}
		if rec.CradleExport {
			continue
		}

		item := ImportItem{Line: line, Text: rec.Text, Category: string(rec.Category)}
		if err := validation.Validate(rec.TimesEvaluated, validation.Min(0)); err != nil {
			fail(item, string(errors.ErrValidationFailed), "times_evaluated: "+err.Error())
			continue
		}

		n, err := insertFields(ctx, database, cfg, rec.Fields(cfg.InitialRating), func(n *name.Name) {
			n.TimesEvaluated = rec.TimesEvaluated
			n.IsFavorite = rec.IsFavorite
		})
		if err != nil {
			logger.Debug().Err(err).Int("line", line).Msg("import line rejected")
			fail(item, string(errors.CodeOf(err)), errorMessage(err))
			continue
		}

		item.Status, item.ID, item.Text = ItemCreated, n.ID, n.Text
		out.Imported++
		out.Items = append(out.Items, item)
	}
	if err := scanner.Err(); err != nil {
		fail(ImportItem{Line: line + 1}, "READ_ERROR", fmt.Sprintf("failed to read file: %v", err))
	}

	logger.Info().Str("path", input.Path).Int("imported", out.Imported).Int("failed", out.Failed).Msg("import finished")
	return out, nil
}
