package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
)

// Sort orders accepted by List.
const (
	SortText    = "text"
	SortRating  = "rating"
	SortCreated = "created"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Category  string `json:"category,omitempty"` // optional; empty lists both
	Favorites bool   `json:"favorites,omitempty"`
	Evaluated *bool  `json:"evaluated,omitempty"` // nil: any; false: never rated
	Prefix    string `json:"prefix,omitempty"`
	Sort      string `json:"sort,omitempty"` // text (default), rating, created
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []name.Name `json:"items"`
	Pagination Pagination  `json:"pagination"`
	Sort       string      `json:"sort"`
}

// List returns a page of names matching the filters.
func List(ctx context.Context, database *sql.DB, cfg *config.Config, input ListInput) (*ListOutput, error) {
	category, err := parseOptionalCategory(input.Category)
	if err != nil {
		return nil, err
	}

	sortName := strings.ToLower(strings.TrimSpace(input.Sort))
	var order db.Order
	switch sortName {
	case "", SortText:
		sortName, order = SortText, db.OrderText
	case SortRating:
		order = db.OrderRating
	case SortCreated:
		order = db.OrderCreated
	default:
		return nil, errors.NewInvalidRequest("sort must be one of: text, rating, created")
	}

	filters := db.ListFilters{
		Category:  category,
		Favorites: input.Favorites,
		Evaluated: input.Evaluated,
	}
	if p := strings.TrimSpace(input.Prefix); p != "" {
		filters.TextPrefix = name.Canonicalize(p, allowedSpecial(cfg))
	}

	limit, offset := normalizePagination(input.Limit, input.Offset)

	items, err := db.List(ctx, database, filters, order, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := db.Count(ctx, database, filters)
	if err != nil {
		return nil, err
	}

	return &ListOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: sortName,
	}, nil
}

// FavoritesOutput contains every favorite in a category.
type FavoritesOutput struct {
	Category name.Category `json:"category"`
	Items    []name.Name   `json:"items"`
}

// Favorites returns every favorite name in category, alphabetically.
func Favorites(ctx context.Context, database *sql.DB, category string) (*FavoritesOutput, error) {
	c, err := parseCategory(category)
	if err != nil {
		return nil, err
	}
	items, err := db.List(ctx, database, db.ListFilters{Category: c, Favorites: true}, db.OrderText, 0, 0)
	if err != nil {
		return nil, err
	}
	return &FavoritesOutput{Category: c, Items: items}, nil
}

// LeaderboardInput contains parameters for the Leaderboard operation.
type LeaderboardInput struct {
	Category string `json:"category"`
	Limit    int    `json:"limit,omitempty"` // 0 returns the whole category
}

// LeaderboardEntry is a name with its rank.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	name.Name
}

// LeaderboardOutput contains the result of the Leaderboard operation.
type LeaderboardOutput struct {
	Category name.Category      `json:"category"`
	Total    int                `json:"total"`
	Items    []LeaderboardEntry `json:"items"`
}

// Leaderboard returns names of a category highest rating first.
// Entry ranks agree with Rank for the same snapshot.
func Leaderboard(ctx context.Context, database *sql.DB, input LeaderboardInput) (*LeaderboardOutput, error) {
	c, err := parseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	if input.Limit < 0 {
		return nil, errors.NewInvalidRequest("limit must not be negative")
	}

	sorted, err := db.ListSortedByRating(ctx, database, c)
	if err != nil {
		return nil, err
	}

	out := &LeaderboardOutput{Category: c, Total: len(sorted), Items: []LeaderboardEntry{}}
	for i, n := range sorted {
		if input.Limit > 0 && i >= input.Limit {
			break
		}
		out.Items = append(out.Items, LeaderboardEntry{Rank: i + 1, Name: n})
	}
	return out, nil
}
