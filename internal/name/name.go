// Package name holds the name record model: canonical text, categories,
// validation and the bundled default dataset.
package name

import (
	"strings"
)

// Category partitions names by intended sex. Ranking and sampling never cross it.
type Category string

const (
	Female Category = "female"
	Male   Category = "male"
)

// Categories lists every valid category in display order.
var Categories = []Category{Female, Male}

// ParseCategory converts user input to a Category.
// Returns false if the input is not a known category.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Female:
		return Female, true
	case Male:
		return Male, true
	}
	return "", false
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == Female || c == Male
}

// Name is a candidate baby name and its preference state.
type Name struct {
	// ID is a ULID that uniquely identifies this record
	ID string `json:"id"`

	// Text is the canonical name text (see Canonicalize)
	Text string `json:"text"`

	// Category is immutable after creation
	Category Category `json:"category"`

	// Rating is the ELO-style preference score, never below the configured floor
	Rating int `json:"rating"`

	// TimesEvaluated counts completed comparisons; 0 means never rated
	TimesEvaluated int `json:"times_evaluated"`

	// IsFavorite is user-toggled and independent of Rating
	IsFavorite bool `json:"is_favorite"`

	// CreatedAt is the Unix timestamp when the record was created
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp when the record was last written
	UpdatedAt int64 `json:"updated_at"`
}

// Evaluated reports whether the name has taken part in at least one comparison.
func (n *Name) Evaluated() bool {
	return n.TimesEvaluated > 0
}

// Ratings returns the ratings of names in order.
func Ratings(names []Name) []int {
	out := make([]int, len(names))
	for i := range names {
		out[i] = names[i].Rating
	}
	return out
}
