package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const nameColumns = `id, text, category, rating, times_evaluated, is_favorite, created_at, updated_at`

// rankOrder is the single ordering used for leaderboards and rank lookups.
// Ties on rating fall back to insertion order.
const rankOrder = `rating DESC, seq ASC`

// Insert stores a new name record.
// Returns NAME_ALREADY_EXISTS if (category, text) is taken.
func Insert(ctx context.Context, q Querier, n *name.Name) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO names (`+nameColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.Text, string(n.Category), n.Rating, n.TimesEvaluated,
		boolToInt(n.IsFavorite), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewNameAlreadyExists(n.Text, string(n.Category))
		}
		return storeError(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storeError maps a driver error to a cradle error.
// Context errors become CANCELLED; everything else is a store failure.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewCancelled("store operation")
	default:
		var cErr *errors.CradleError
		if stderrors.As(err, &cErr) {
			return err
		}
		return errors.NewStoreFailure(err)
	}
}

// GetByID retrieves a name by its ULID.
func GetByID(ctx context.Context, q Querier, id string) (*name.Name, error) {
	row := q.QueryRowContext(ctx, `SELECT `+nameColumns+` FROM names WHERE id = ?`, id)
	n, err := scanName(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return n, nil
}

// GetByText retrieves a name by its canonical text within a category.
// Absence is reported through found, not as an error.
func GetByText(ctx context.Context, q Querier, category name.Category, text string) (n *name.Name, found bool, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+nameColumns+`
		FROM names
		WHERE category = ? AND text = ?
		ORDER BY seq ASC
		LIMIT 2
	`, string(category), text)
	if err != nil {
		return nil, false, storeError(err)
	}
	defer rows.Close()

	var matches []*name.Name
	for rows.Next() {
		m, err := ScanNameFromRows(rows)
		if err != nil {
			return nil, false, storeError(err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, false, storeError(err)
	}

	if len(matches) == 0 {
		return nil, false, nil
	}
	if len(matches) > 1 {
		zerolog.Ctx(ctx).Warn().
			Str("category", string(category)).
			Str("text", text).
			Msg("duplicate name records found; using the oldest")
	}
	return matches[0], true, nil
}

// Order selects the sort order of List.
type Order int

const (
	// OrderText sorts alphabetically by canonical text.
	OrderText Order = iota
	// OrderRating sorts by rating descending, ties by insertion order.
	OrderRating
	// OrderCreated sorts by insertion order.
	OrderCreated
)

func (o Order) clause() string {
	switch o {
	case OrderRating:
		return rankOrder
	case OrderCreated:
		return `seq ASC`
	default:
		return `text ASC, seq ASC`
	}
}

// ListFilters narrows List and Count. Zero values match everything.
type ListFilters struct {
	Category   name.Category
	Favorites  bool
	Evaluated  *bool
	TextPrefix string
}

func (f ListFilters) where() (string, []any) {
	var conds []string
	var args []any

	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.Favorites {
		conds = append(conds, "is_favorite = 1")
	}
	if f.Evaluated != nil {
		if *f.Evaluated {
			conds = append(conds, "times_evaluated > 0")
		} else {
			conds = append(conds, "times_evaluated = 0")
		}
	}
	if f.TextPrefix != "" {
		conds = append(conds, `text LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(f.TextPrefix)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike escapes LIKE wildcards so the prefix matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List returns names matching filters in the given order.
// A limit of 0 returns every match.
func List(ctx context.Context, q Querier, f ListFilters, order Order, limit, offset int) ([]name.Name, error) {
	where, args := f.where()
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, offset)

	rows, err := q.QueryContext(ctx,
		`SELECT `+nameColumns+` FROM names`+where+` ORDER BY `+order.clause()+` LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var names []name.Name
	for rows.Next() {
		n, err := ScanNameFromRows(rows)
		if err != nil {
			return nil, storeError(err)
		}
		names = append(names, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	if names == nil {
		names = []name.Name{}
	}
	return names, nil
}

// Count returns how many names match filters.
func Count(ctx context.Context, q Querier, f ListFilters) (int, error) {
	where, args := f.where()
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM names`+where, args...).Scan(&total); err != nil {
		return 0, storeError(err)
	}
	return total, nil
}

// ListSortedByRating returns every name in category, highest rating first.
// Position i in the result has rank i+1.
func ListSortedByRating(ctx context.Context, q Querier, category name.Category) ([]name.Name, error) {
	return List(ctx, q, ListFilters{Category: category}, OrderRating, 0, 0)
}

// Patch lists the mutable fields of a name to change. Nil fields keep their stored value.
type Patch struct {
	Rating         *int
	TimesEvaluated *int
	IsFavorite     *bool
}

// UpdateByID writes only the fields set in p and returns the record as written.
// Text and category are immutable after creation.
func UpdateByID(ctx context.Context, database *sql.DB, id string, p Patch, updatedAt int64) (*name.Name, error) {
	set := []string{"updated_at = ?"}
	args := []any{updatedAt}
	if p.Rating != nil {
		set = append(set, "rating = ?")
		args = append(args, *p.Rating)
	}
	if p.TimesEvaluated != nil {
		set = append(set, "times_evaluated = ?")
		args = append(args, *p.TimesEvaluated)
	}
	if p.IsFavorite != nil {
		set = append(set, "is_favorite = ?")
		args = append(args, boolToInt(*p.IsFavorite))
	}
	args = append(args, id)

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer func() { _ = tx.Rollback() }()

	// As in Evaluate, the write comes first so the read back sees no interleaved writer.
	res, err := tx.ExecContext(ctx, `UPDATE names SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, storeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeError(err)
	}
	if affected == 0 {
		return nil, errors.NewNotFound(id)
	}

	n, err := GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return n, nil
}

// Delete removes a name by ID.
// Deleting a name that does not exist is not an error; deleted reports whether a row went away.
func Delete(ctx context.Context, q Querier, id string) (deleted bool, err error) {
	res, err := q.ExecContext(ctx, `DELETE FROM names WHERE id = ?`, id)
	if err != nil {
		return false, storeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeError(err)
	}
	return affected > 0, nil
}

// DeleteMany removes every id in one transaction.
// Either all deletes apply or none do. The returned slice reports, per id, whether a row existed.
func DeleteMany(ctx context.Context, database *sql.DB, ids []string) ([]bool, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer func() { _ = tx.Rollback() }()

	deleted := make([]bool, len(ids))
	for i, id := range ids {
		ok, err := Delete(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		deleted[i] = ok
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return deleted, nil
}

// Evaluate applies next to the stored rating of id and counts one evaluation,
// in a single transaction. Returns the record as written.
func Evaluate(ctx context.Context, database *sql.DB, id string, next func(current int) int) (*name.Name, error) {
	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer func() { _ = tx.Rollback() }()

	// Writing first takes the database write lock, so the rating read below
	// cannot be overwritten by a concurrent evaluation before we commit.
	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx, `
		UPDATE names
		SET times_evaluated = times_evaluated + 1, updated_at = ?
		WHERE id = ?
	`, now, id)
	if err != nil {
		return nil, storeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storeError(err)
	}
	if affected == 0 {
		return nil, errors.NewNotFound(id)
	}

	n, err := GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	n.Rating = next(n.Rating)
	if _, err := tx.ExecContext(ctx, `UPDATE names SET rating = ? WHERE id = ?`, n.Rating, id); err != nil {
		return nil, storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return n, nil
}

// Rank returns the 1-based position of id within category under the
// leaderboard ordering, and the category size.
// found is false if id does not exist or belongs to another category.
func Rank(ctx context.Context, q Querier, category name.Category, id string) (rank, total int, found bool, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM names o
		   WHERE o.category = t.category
		     AND (o.rating > t.rating OR (o.rating = t.rating AND o.seq < t.seq))) + 1,
		  (SELECT COUNT(*) FROM names o WHERE o.category = t.category)
		FROM names t
		WHERE t.id = ? AND t.category = ?
	`, id, string(category)).Scan(&rank, &total)
	if err == sql.ErrNoRows {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, storeError(err)
	}
	return rank, total, true, nil
}

// CategoryStats summarizes one category.
type CategoryStats struct {
	Category    name.Category `json:"category"`
	Total       int           `json:"total"`
	Evaluated   int           `json:"evaluated"`
	Favorites   int           `json:"favorites"`
	Evaluations int           `json:"evaluations"`
	MinRating   int           `json:"min_rating"`
	MaxRating   int           `json:"max_rating"`
	MeanRating  int           `json:"mean_rating"`
}

// Stats returns per-category aggregates for categories that have names.
func Stats(ctx context.Context, q Querier) ([]CategoryStats, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT category,
		       COUNT(*),
		       SUM(CASE WHEN times_evaluated > 0 THEN 1 ELSE 0 END),
		       SUM(is_favorite),
		       SUM(times_evaluated),
		       MIN(rating),
		       MAX(rating),
		       CAST(AVG(rating) AS INTEGER)
		FROM names
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	var out []CategoryStats
	for rows.Next() {
		var s CategoryStats
		var category string
		if err := rows.Scan(&category, &s.Total, &s.Evaluated, &s.Favorites,
			&s.Evaluations, &s.MinRating, &s.MaxRating, &s.MeanRating); err != nil {
			return nil, storeError(err)
		}
		s.Category = name.Category(category)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return out, nil
}

// DeleteAll removes every name, or only those in category when it is non-empty.
func DeleteAll(ctx context.Context, q Querier, category name.Category) (int, error) {
	query, args := `DELETE FROM names`, []any(nil)
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeError(err)
	}
	return int(affected), nil
}

// ResetRatings sets every rating back to initial and clears evaluation counts.
// Favorites are kept. A non-empty category limits the reset to it.
func ResetRatings(ctx context.Context, q Querier, category name.Category, initial int) (int, error) {
	query := `UPDATE names SET rating = ?, times_evaluated = 0, updated_at = ?`
	args := []any{initial, time.Now().Unix()}
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, storeError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeError(err)
	}
	return int(affected), nil
}

// StreamForExport returns rows for export in insertion order.
// Caller must close the returned rows.
func StreamForExport(ctx context.Context, q Querier, category name.Category) (*sql.Rows, error) {
	query := `SELECT ` + nameColumns + ` FROM names`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY seq ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(err)
	}
	return rows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInto(s scanner) (*name.Name, error) {
	var n name.Name
	var category string
	var favorite int
	if err := s.Scan(&n.ID, &n.Text, &category, &n.Rating, &n.TimesEvaluated,
		&favorite, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.Category = name.Category(category)
	n.IsFavorite = favorite != 0
	return &n, nil
}

// scanName scans a single row into a Name.
func scanName(row *sql.Row) (*name.Name, error) {
	return scanInto(row)
}

// ScanNameFromRows scans the current row of rows into a Name.
func ScanNameFromRows(rows *sql.Rows) (*name.Name, error) {
	return scanInto(rows)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
