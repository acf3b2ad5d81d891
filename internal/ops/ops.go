// Package ops implements the name operations shared by the CLI and the MCP
// server. Every operation takes the store handle and config explicitly.
package ops

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
	"github.com/hpungsan/cradle/internal/rating"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
	MaxBatchItems    = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// normalizePagination applies defaults and bounds to limit and offset.
func normalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Ref addresses a single name, either by ID or by text within a category.
type Ref struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	Category string `json:"category,omitempty"`
}

// address is a validated Ref.
type address struct {
	byID     bool
	id       string
	text     string
	category name.Category
}

// resolveRef validates addressing parameters.
// An id must stand alone; text requires a category.
func resolveRef(ref Ref, cfg *config.Config) (*address, error) {
	id := strings.TrimSpace(ref.ID)
	text := strings.TrimSpace(ref.Text)

	if id != "" && text != "" {
		return nil, errors.NewInvalidRequest("specify either id or text, not both")
	}
	if id != "" {
		return &address{byID: true, id: id}, nil
	}
	if text == "" {
		return nil, errors.NewInvalidRequest("must specify either id or text")
	}

	category, err := parseCategory(ref.Category)
	if err != nil {
		return nil, err
	}
	return &address{
		text:     name.Canonicalize(text, allowedSpecial(cfg)),
		category: category,
	}, nil
}

// parseCategory requires a known category.
func parseCategory(s string) (name.Category, error) {
	if strings.TrimSpace(s) == "" {
		return "", errors.NewInvalidRequest("category is required (female or male)")
	}
	c, ok := name.ParseCategory(s)
	if !ok {
		return "", errors.NewInvalidRequest("category must be one of: female, male")
	}
	return c, nil
}

// parseOptionalCategory returns "" for blank input, meaning every category.
func parseOptionalCategory(s string) (name.Category, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return parseCategory(s)
}

func allowedSpecial(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.AllowedSpecialChars
}

// Calculator returns the rating calculator described by cfg.
func Calculator(cfg *config.Config) rating.Calculator {
	if cfg == nil {
		return rating.Default()
	}
	return rating.Calculator{K: cfg.KFactor, Floor: cfg.MinRating}
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// generateULID creates a new ULID string.
// IDs generated within the same millisecond still sort in creation order.
func generateULID() (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
