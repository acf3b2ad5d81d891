package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
)

// DeleteInput addresses the name to delete.
type DeleteInput = Ref

// DeleteOutput contains the result of the Delete operation.
// Deleted is false when there was nothing to delete; that is not an error.
type DeleteOutput struct {
	ID      string `json:"id,omitempty"`
	Deleted bool   `json:"deleted"`
}

// Delete removes a name by ID or by text within a category. Idempotent.
func Delete(ctx context.Context, database *sql.DB, cfg *config.Config, input DeleteInput) (*DeleteOutput, error) {
	addr, err := resolveRef(input, cfg)
	if err != nil {
		return nil, err
	}

	id := addr.id
	if !addr.byID {
		n, found, err := lookup(ctx, database, addr)
		if err != nil {
			return nil, err
		}
		if !found {
			return &DeleteOutput{Deleted: false}, nil
		}
		id = n.ID
	}

	deleted, err := db.Delete(ctx, database, id)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{ID: id, Deleted: deleted}, nil
}

// BulkDeleteInput contains parameters for the BulkDelete operation.
type BulkDeleteInput struct {
	IDs []string `json:"ids"`
}

// BulkDeleteOutput reports each id's outcome. Missing ids are not errors.
type BulkDeleteOutput struct {
	Deleted int            `json:"deleted"`
	Missing int            `json:"missing"`
	Items   []DeleteOutput `json:"items"`
}

// BulkDelete removes every id in one transaction: all deletes apply or none do.
func BulkDelete(ctx context.Context, database *sql.DB, input BulkDeleteInput) (*BulkDeleteOutput, error) {
	if len(input.IDs) == 0 {
		return nil, errors.NewInvalidRequest("ids must not be empty")
	}
	if len(input.IDs) > MaxBatchItems {
		return nil, errors.NewInvalidRequest("too many ids (max 500)")
	}

	ids := make([]string, len(input.IDs))
	for i, id := range input.IDs {
		ids[i] = strings.TrimSpace(id)
		if ids[i] == "" {
			return nil, errors.NewInvalidRequest("ids must not contain blank entries")
		}
	}

	deleted, err := db.DeleteMany(ctx, database, ids)
	if err != nil {
		return nil, err
	}

	out := &BulkDeleteOutput{Items: make([]DeleteOutput, len(ids))}
	for i, id := range ids {
		out.Items[i] = DeleteOutput{ID: id, Deleted: deleted[i]}
		if deleted[i] {
			out.Deleted++
		} else {
			out.Missing++
		}
	}
	return out, nil
}
