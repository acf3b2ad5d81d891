package ops

import (
	"context"
	"testing"

	"github.com/hpungsan/cradle/internal/errors"
)

func TestFetch(t *testing.T) {
	database, cfg := setupOps(t)
	created := mustCreate(t, database, cfg, "Juan Pablo", "male", 1200)

	tests := []struct {
		name      string
		input     FetchInput
		wantFound bool
	}{
		{"by id", FetchInput{ID: created.ID}, true},
		{"by text", FetchInput{Text: "juan pablo", Category: "male"}, true},
		{"wrong category", FetchInput{Text: "Juan Pablo", Category: "female"}, false},
		{"missing id", FetchInput{ID: "01NOPE"}, false},
		{"missing text", FetchInput{Text: "Pablo", Category: "male"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Fetch(context.Background(), database, cfg, tt.input)
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if out.Found != tt.wantFound {
				t.Fatalf("Found = %v, want %v", out.Found, tt.wantFound)
			}
			if tt.wantFound && out.Name.ID != created.ID {
				t.Errorf("ID = %q, want %q", out.Name.ID, created.ID)
			}
			if !tt.wantFound && out.Name != nil {
				t.Errorf("Name = %+v, want nil", out.Name)
			}
		})
	}
}

func TestFetch_InvalidAddress(t *testing.T) {
	database, cfg := setupOps(t)

	_, err := Fetch(context.Background(), database, cfg, FetchInput{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}
