package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/db"
	"github.com/hpungsan/cradle/internal/errors"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	cleanup := func() {
		database.Close()
	}

	return database, cfg, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func newTestHandlers(database *sql.DB, cfg *config.Config) *Handlers {
	return NewHandlers(database, cfg, zerolog.Nop())
}

// createName stores a name through the handler and returns its id.
func createName(t *testing.T, h *Handlers, text, category string, rating int) string {
	t.Helper()
	result, err := h.HandleCreate(context.Background(), makeRequest(map[string]any{
		"text":     text,
		"category": category,
		"rating":   rating,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	return out["name"].(map[string]any)["id"].(string)
}

func TestHandleCreate(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "create valid name",
			args:      map[string]any{"text": "amara", "category": "female"},
			wantError: false,
		},
		{
			name:      "duplicate after canonicalization",
			args:      map[string]any{"text": "  AMARA ", "category": "female"},
			wantError: true,
			errorCode: "NAME_ALREADY_EXISTS",
		},
		{
			name:      "same text other category",
			args:      map[string]any{"text": "Amara", "category": "male"},
			wantError: false,
		},
		{
			name:      "digits rejected",
			args:      map[string]any{"text": "R2D2", "category": "male"},
			wantError: true,
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "unknown category",
			args:      map[string]any{"text": "Robin", "category": "other"},
			wantError: true,
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "rating below floor",
			args:      map[string]any{"text": "Robin", "category": "male", "rating": 10},
			wantError: true,
			errorCode: "VALIDATION_FAILED",
		},
		{
			name:      "wrong argument type",
			args:      map[string]any{"text": 42, "category": "male"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleCreate(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}
}

func TestHandleCreate_DefaultRating(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	result, err := h.HandleCreate(context.Background(), makeRequest(map[string]any{
		"text":     "hadley",
		"category": "female",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	n := parseOutput(t, result)["name"].(map[string]any)
	if n["text"] != "Hadley" {
		t.Errorf("text = %v, want Hadley", n["text"])
	}
	if n["rating"].(float64) != float64(cfg.InitialRating) {
		t.Errorf("rating = %v, want %d", n["rating"], cfg.InitialRating)
	}
	if n["times_evaluated"].(float64) != 0 {
		t.Errorf("times_evaluated = %v, want 0", n["times_evaluated"])
	}
}

func TestHandleCreate_CancelledContext(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.HandleCreate(ctx, makeRequest(map[string]any{"text": "Lily", "category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "CANCELLED")
}

func TestHandleCreateMany(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	result, err := h.HandleCreateMany(context.Background(), makeRequest(map[string]any{
		"items": []any{
			map[string]any{"text": "Lily", "category": "female"},
			map[string]any{"text": "lily", "category": "female"},
			map[string]any{"text": "Noah", "category": "male", "rating": 1300},
			map[string]any{"text": "", "category": "male"},
		},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	out := parseOutput(t, result)
	if out["created"].(float64) != 2 {
		t.Errorf("created = %v, want 2", out["created"])
	}
	if out["failed"].(float64) != 2 {
		t.Errorf("failed = %v, want 2", out["failed"])
	}
	items := out["items"].([]any)
	if len(items) != 4 {
		t.Fatalf("items = %d, want 4", len(items))
	}
	if code := items[1].(map[string]any)["code"]; code != "NAME_ALREADY_EXISTS" {
		t.Errorf("items[1].code = %v, want NAME_ALREADY_EXISTS", code)
	}
}

func TestHandleFetch(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	id := createName(t, h, "Ana Sofia", "female", 1250)

	tests := []struct {
		name      string
		args      map[string]any
		wantFound bool
		errorCode string
	}{
		{"by id", map[string]any{"id": id}, true, ""},
		{"by text", map[string]any{"text": "ana  sofia", "category": "female"}, true, ""},
		{"wrong category", map[string]any{"text": "Ana Sofia", "category": "male"}, false, ""},
		{"unknown id", map[string]any{"id": "01HZZZZZZZZZZZZZZZZZZZZZZZ"}, false, ""},
		{"id and text", map[string]any{"id": id, "text": "Ana Sofia", "category": "female"}, false, "INVALID_REQUEST"},
		{"text without category", map[string]any{"text": "Ana Sofia"}, false, "INVALID_REQUEST"},
		{"no address", map[string]any{}, false, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleFetch(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}

			out := parseOutput(t, result)
			if out["found"] != tt.wantFound {
				t.Errorf("found = %v, want %v", out["found"], tt.wantFound)
			}
			if tt.wantFound {
				n := out["name"].(map[string]any)
				if n["id"] != id || n["rating"].(float64) != 1250 {
					t.Errorf("name = %v", n)
				}
			}
		})
	}
}

func TestHandleList(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	createName(t, h, "Lily", "female", 1300)
	createName(t, h, "Lena", "female", 1100)
	createName(t, h, "Amara", "female", 1200)
	createName(t, h, "Leo", "male", 1200)

	tests := []struct {
		name      string
		args      map[string]any
		wantTexts []string
		wantTotal float64
	}{
		{"all by text", map[string]any{}, []string{"Amara", "Lena", "Leo", "Lily"}, 4},
		{"category", map[string]any{"category": "female"}, []string{"Amara", "Lena", "Lily"}, 3},
		{"prefix", map[string]any{"prefix": "le"}, []string{"Lena", "Leo"}, 2},
		{"by rating", map[string]any{"category": "female", "sort": "rating"}, []string{"Lily", "Amara", "Lena"}, 3},
		{"page", map[string]any{"limit": 2, "offset": 1}, []string{"Lena", "Leo"}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleList(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			out := parseOutput(t, result)

			items := out["items"].([]any)
			if len(items) != len(tt.wantTexts) {
				t.Fatalf("items = %d, want %d", len(items), len(tt.wantTexts))
			}
			for i, want := range tt.wantTexts {
				if got := items[i].(map[string]any)["text"]; got != want {
					t.Errorf("items[%d] = %v, want %s", i, got, want)
				}
			}
			page := out["pagination"].(map[string]any)
			if page["total"].(float64) != tt.wantTotal {
				t.Errorf("total = %v, want %v", page["total"], tt.wantTotal)
			}
		})
	}

	t.Run("bad sort", func(t *testing.T) {
		result, err := h.HandleList(ctx, makeRequest(map[string]any{"sort": "length"}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		assertErrorCode(t, result, "INVALID_REQUEST")
	})
}

func TestHandleUpdateAndFavorites(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	id := createName(t, h, "Noah", "male", 1200)
	createName(t, h, "Eli", "male", 1200)

	result, err := h.HandleUpdate(ctx, makeRequest(map[string]any{"id": id, "is_favorite": true, "rating": 1450}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	n := parseOutput(t, result)["name"].(map[string]any)
	if n["is_favorite"] != true || n["rating"].(float64) != 1450 {
		t.Errorf("updated name = %v", n)
	}

	result, err = h.HandleFavorites(ctx, makeRequest(map[string]any{"category": "male"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	items := parseOutput(t, result)["items"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["id"] != id {
		t.Errorf("favorites = %v, want only Noah", items)
	}

	result, err = h.HandleUpdate(ctx, makeRequest(map[string]any{"text": "Nobody", "category": "male", "is_favorite": true}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")

	result, err = h.HandleUpdate(ctx, makeRequest(map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleDelete(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	createName(t, h, "Mila", "female", 1200)

	for i, want := range []bool{true, false} {
		result, err := h.HandleDelete(ctx, makeRequest(map[string]any{"text": "mila", "category": "female"}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		out := parseOutput(t, result)
		if out["deleted"] != want {
			t.Errorf("call %d: deleted = %v, want %v", i+1, out["deleted"], want)
		}
	}
}

func TestHandleBulkDelete(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	a := createName(t, h, "Ava", "female", 1200)
	b := createName(t, h, "Ben", "male", 1200)

	result, err := h.HandleBulkDelete(ctx, makeRequest(map[string]any{
		"ids": []any{a, b, "01HZZZZZZZZZZZZZZZZZZZZZZZ"},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["deleted"].(float64) != 2 || out["missing"].(float64) != 1 {
		t.Errorf("deleted/missing = %v/%v, want 2/1", out["deleted"], out["missing"])
	}

	result, err = h.HandleBulkDelete(ctx, makeRequest(map[string]any{"ids": []any{}}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleRankAndLeaderboard(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	createName(t, h, "Hadley", "female", 1400)
	createName(t, h, "Amara", "female", 1600)
	createName(t, h, "Lily", "female", 1500)

	result, err := h.HandleLeaderboard(ctx, makeRequest(map[string]any{"category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	board := parseOutput(t, result)["items"].([]any)

	for i, want := range []string{"Amara", "Lily", "Hadley"} {
		entry := board[i].(map[string]any)
		if entry["text"] != want || entry["rank"].(float64) != float64(i+1) {
			t.Errorf("leaderboard[%d] = %v, want %s at rank %d", i, entry, want, i+1)
		}

		result, err := h.HandleRank(ctx, makeRequest(map[string]any{"text": want, "category": "female"}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		out := parseOutput(t, result)
		if out["found"] != true || out["rank"].(float64) != float64(i+1) || out["total"].(float64) != 3 {
			t.Errorf("rank(%s) = %v, want %d of 3", want, out, i+1)
		}
	}

	result, err = h.HandleRank(ctx, makeRequest(map[string]any{"text": "Zoe", "category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if out := parseOutput(t, result); out["found"] != false {
		t.Errorf("found = %v, want false", out["found"])
	}

	result, err = h.HandleRank(ctx, makeRequest(map[string]any{"text": "Lily"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleSeedResetStats(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()

	result, err := h.HandleSeed(ctx, makeRequest(map[string]any{"category": "male"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	seeded := parseOutput(t, result)["created"].(float64)
	if seeded == 0 {
		t.Fatal("expected default names to be created")
	}

	result, err = h.HandleStats(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if total := parseOutput(t, result)["total"].(float64); total != seeded {
		t.Errorf("stats total = %v, want %v", total, seeded)
	}

	result, err = h.HandleReset(ctx, makeRequest(map[string]any{"mode": "clear", "category": "male"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if deleted := parseOutput(t, result)["deleted"].(float64); deleted != seeded {
		t.Errorf("deleted = %v, want %v", deleted, seeded)
	}

	result, err = h.HandleReset(ctx, makeRequest(map[string]any{"mode": "everything"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleExportImport(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	createName(t, h, "Lily", "female", 1500)
	createName(t, h, "Noah", "male", 1300)

	path := filepath.Join(t.TempDir(), "names.jsonl")
	result, err := h.HandleExport(ctx, makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if count := parseOutput(t, result)["count"].(float64); count != 2 {
		t.Errorf("exported count = %v, want 2", count)
	}

	if _, err := h.HandleReset(ctx, makeRequest(map[string]any{"mode": "clear"})); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	result, err = h.HandleImport(ctx, makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	if out["imported"].(float64) != 2 || out["failed"].(float64) != 0 {
		t.Errorf("imported/failed = %v/%v, want 2/0", out["imported"], out["failed"])
	}

	result, err = h.HandleRank(ctx, makeRequest(map[string]any{"text": "Lily", "category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if n := parseOutput(t, result)["name"].(map[string]any); n["rating"].(float64) != 1500 {
		t.Errorf("imported rating = %v, want 1500", n["rating"])
	}

	result, err = h.HandleImport(ctx, makeRequest(map[string]any{"path": filepath.Join(t.TempDir(), "missing.jsonl")}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "FILE_NOT_FOUND")
}

func TestHandleRound_FullCycle(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	winner := createName(t, h, "Amara", "female", 1200)
	createName(t, h, "Lily", "female", 1200)
	createName(t, h, "Hadley", "female", 1200)

	result, err := h.HandleRoundLoad(ctx, makeRequest(map[string]any{"category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	round := parseOutput(t, result)
	if round["state"] != "presenting" {
		t.Errorf("state = %v, want presenting", round["state"])
	}
	if n := len(round["presented"].([]any)); n != 3 {
		t.Fatalf("presented = %d, want 3", n)
	}

	result, err = h.HandleRoundSelect(ctx, makeRequest(map[string]any{"category": "female", "id": winner}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	sel := parseOutput(t, result)
	if sel["changed"] != true {
		t.Errorf("changed = %v, want true", sel["changed"])
	}
	chosen := sel["round"].(map[string]any)["chosen"].([]any)
	if len(chosen) != 1 || chosen[0].(map[string]any)["id"] != winner {
		t.Errorf("chosen = %v, want only Amara", chosen)
	}

	// Selecting again is a no-op.
	result, err = h.HandleRoundSelect(ctx, makeRequest(map[string]any{"category": "female", "id": winner}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if parseOutput(t, result)["changed"] != false {
		t.Error("second select should not change the round")
	}

	result, err = h.HandleRoundSubmit(ctx, makeRequest(map[string]any{"category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	out := parseOutput(t, result)
	res := out["result"].(map[string]any)
	if res["updated"].(float64) != 3 || res["failed"].(float64) != 0 {
		t.Errorf("updated/failed = %v/%v, want 3/0", res["updated"], res["failed"])
	}
	if out["round"].(map[string]any)["state"] != "presenting" {
		t.Errorf("next round state = %v, want presenting", out["round"])
	}

	result, err = h.HandleLeaderboard(ctx, makeRequest(map[string]any{"category": "female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	board := parseOutput(t, result)["items"].([]any)
	top := board[0].(map[string]any)
	if top["id"] != winner || top["rating"].(float64) != 1225 || top["times_evaluated"].(float64) != 1 {
		t.Errorf("top = %v, want Amara at 1225 evaluated once", top)
	}
	for _, e := range board[1:] {
		if r := e.(map[string]any)["rating"].(float64); r != 1175 {
			t.Errorf("loser rating = %v, want 1175", r)
		}
	}
}

func TestHandleRound_Errors(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		handler   func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args      map[string]any
		errorCode string
	}{
		{"submit without round", h.HandleRoundSubmit, map[string]any{"category": "male"}, "CONFLICT"},
		{"load unknown category", h.HandleRoundLoad, map[string]any{"category": "other"}, "INVALID_REQUEST"},
		{"load missing category", h.HandleRoundLoad, map[string]any{}, "INVALID_REQUEST"},
		{"select without id", h.HandleRoundSelect, map[string]any{"category": "male"}, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			assertErrorCode(t, result, tt.errorCode)
		})
	}
}

func TestHandleRound_SessionPerCategory(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)
	ctx := context.Background()
	createName(t, h, "Lily", "female", 1200)
	createName(t, h, "Noah", "male", 1200)

	if _, err := h.HandleRoundLoad(ctx, makeRequest(map[string]any{"category": "female"})); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	result, err := h.HandleRoundShow(ctx, makeRequest(map[string]any{"category": "male"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if state := parseOutput(t, result)["state"]; state != "idle" {
		t.Errorf("male state = %v, want idle", state)
	}

	result, err = h.HandleRoundShow(ctx, makeRequest(map[string]any{"category": "Female"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if state := parseOutput(t, result)["state"]; state != "presenting" {
		t.Errorf("female state = %v, want presenting", state)
	}
}

func TestHandlers_ConcurrentSessionLookup(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := newTestHandlers(database, cfg)

	var wg sync.WaitGroup
	sessions := make([]any, 16)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := h.session("female")
			if err != nil {
				t.Errorf("session() error = %v", err)
				return
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(sessions); i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("expected one shared session per category")
		}
	}
}

func TestServerRegistration(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(database, cfg, "test", zerolog.Nop())
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	if len(tools) != len(toolRegistry) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry))
	}
	for _, name := range AllToolNames() {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"name_reset", "name_bulk_delete", "name_reset"}
	s := NewServer(database, cfg, "test", zerolog.Nop())
	tools := s.ListTools()

	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"name_reset", "name_bulk_delete"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	for _, name := range []string{"name_create", "name_rank", "round_submit"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("core tool %q should be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTypes = []string{"round"}
	s := NewServer(database, cfg, "test", zerolog.Nop())
	tools := s.ListTools()

	for name := range tools {
		if GetTypeForTool(name) == "round" {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
	if len(tools) != len(toolRegistry)-len(ExpandTypesToTools([]string{"round"})) {
		t.Errorf("registered tool count = %d", len(tools))
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, cfg, "test", zerolog.Nop())
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"name_reset", "round_submit"}, 0},
		{"one unknown", []string{"name_reset", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	if unknown := ValidateDisabledTypes([]string{"name", "round"}); len(unknown) != 0 {
		t.Errorf("unexpected unknown types: %v", unknown)
	}
	if unknown := ValidateDisabledTypes([]string{"album"}); len(unknown) != 1 {
		t.Errorf("unknown = %v, want [album]", unknown)
	}
}

func TestGetTypeForTool(t *testing.T) {
	tests := map[string]string{
		"name_create":      "name",
		"name_bulk_delete": "name",
		"round_submit":     "round",
		"stats":            "",
		"_x":               "",
	}
	for tool, want := range tests {
		if got := GetTypeForTool(tool); got != want {
			t.Errorf("GetTypeForTool(%q) = %q, want %q", tool, got, want)
		}
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != 20 {
		t.Errorf("AllToolNames() returned %d names, want 20", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("AllToolNames() not sorted at %d: %q > %q", i, names[i-1], names[i])
		}
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorPayload(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if errObj["message"] != "an internal error occurred" {
		t.Errorf("message = %v, want generic message", errObj["message"])
	}
}

func TestErrorResult_StoreFailureHidesCause(t *testing.T) {
	r := errorResult(fmt.Errorf("evaluate: %w", errors.NewStoreFailure(fmt.Errorf("disk I/O error"))))

	errObj := errorPayload(t, r)
	if errObj["code"] != string(errors.ErrStoreFailure) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrStoreFailure)
	}
	if errObj["message"] != "name store unavailable" {
		t.Errorf("message = %v", errObj["message"])
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	errObj := errorPayload(t, errorResult(errors.NewNotFound("abc")))

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorPayload(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != "INTERNAL" || errObj["message"] != "an internal error occurred" {
		t.Errorf("payload = %v", errObj)
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	return payload["error"].(map[string]any)
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result, got success: %s", extractErrorMessage(result))
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}

func TestDecode(t *testing.T) {
	got, err := decode[LeaderboardRequest](makeRequest(map[string]any{"category": "male", "limit": 3}))
	if err != nil {
		t.Fatalf("decode() error = %v", err)
	}
	if got.Category != "male" || got.Limit != 3 {
		t.Errorf("decode() = %+v", got)
	}

	if _, err := decode[LeaderboardRequest](makeRequest(nil)); err != nil {
		t.Errorf("decode(nil) error = %v", err)
	}

	_, err = decode[LeaderboardRequest](makeRequest(map[string]any{"limit": "ten"}))
	if err == nil || err.Error() != "limit: expected int, got string" {
		t.Errorf("decode() error = %v, want named type mismatch", err)
	}
}
