package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/cradle/internal/config"
	"github.com/hpungsan/cradle/internal/errors"
	"github.com/hpungsan/cradle/internal/name"
	"github.com/hpungsan/cradle/internal/ops"
	"github.com/hpungsan/cradle/internal/session"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log zerolog.Logger

	mu       sync.Mutex
	sessions map[name.Category]*session.Session
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, logger zerolog.Logger) *Handlers {
	return &Handlers{
		db:       db,
		cfg:      cfg,
		log:      logger,
		sessions: make(map[name.Category]*session.Session),
	}
}

// session returns the round session for category, creating it on first use.
// Sessions live as long as the server; one per category.
func (h *Handlers) session(category string) (*session.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := name.ParseCategory(category); ok {
		if s := h.sessions[c]; s != nil {
			return s, nil
		}
	}
	s, err := ops.NewSession(h.db, h.cfg, category, h.log)
	if err != nil {
		return nil, err
	}
	h.sessions[s.Category()] = s
	return s, nil
}

// Request types for each tool

// CreateRequest represents the arguments for name_create.
type CreateRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Rating   *int   `json:"rating,omitempty"`
}

// CreateManyRequest represents the arguments for name_create_many.
type CreateManyRequest struct {
	Items []CreateRequest `json:"items"`
}

// RefRequest addresses one name: by id, or by text+category.
type RefRequest struct {
	ID       string `json:"id,omitempty"`
	Text     string `json:"text,omitempty"`
	Category string `json:"category,omitempty"`
}

func (r RefRequest) ref() ops.Ref {
	return ops.Ref{ID: r.ID, Text: r.Text, Category: r.Category}
}

// ListRequest represents the arguments for name_list.
type ListRequest struct {
	Category  string `json:"category,omitempty"`
	Favorites bool   `json:"favorites,omitempty"`
	Evaluated *bool  `json:"evaluated,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Sort      string `json:"sort,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

// CategoryRequest is used by tools that take only a category.
type CategoryRequest struct {
	Category string `json:"category,omitempty"`
}

// LeaderboardRequest represents the arguments for name_leaderboard.
type LeaderboardRequest struct {
	Category string `json:"category"`
	Limit    int    `json:"limit,omitempty"`
}

// UpdateRequest represents the arguments for name_update.
type UpdateRequest struct {
	RefRequest
	IsFavorite     *bool `json:"is_favorite,omitempty"`
	Rating         *int  `json:"rating,omitempty"`
	TimesEvaluated *int  `json:"times_evaluated,omitempty"`
}

// BulkDeleteRequest represents the arguments for name_bulk_delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// ResetRequest represents the arguments for name_reset.
type ResetRequest struct {
	Mode     string `json:"mode"`
	Category string `json:"category,omitempty"`
}

// ExportRequest represents the arguments for name_export.
type ExportRequest struct {
	Path     string `json:"path,omitempty"`
	Category string `json:"category,omitempty"`
}

// ImportRequest represents the arguments for name_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// RoundRequest represents the arguments for the round_* tools.
type RoundRequest struct {
	Category string `json:"category"`
	ID       string `json:"id,omitempty"`
}

// SelectResponse is returned by round_select and round_deselect.
type SelectResponse struct {
	Changed bool           `json:"changed"`
	Round   *session.Round `json:"round"`
}

// SubmitResponse is returned by round_submit. Round is the next round; when
// it could not be loaded, Round is nil and Warning says why.
type SubmitResponse struct {
	Result  *session.SubmitResult `json:"result"`
	Round   *session.Round        `json:"round,omitempty"`
	Warning string                `json:"warning,omitempty"`
}

// HandleCreate handles the name_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(ctx, h.db, h.cfg, ops.CreateInput{
		Text:     input.Text,
		Category: input.Category,
		Rating:   input.Rating,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCreateMany handles the name_create_many tool call.
func (h *Handlers) HandleCreateMany(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateManyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	items := make([]ops.CreateInput, len(input.Items))
	for i, item := range input.Items {
		items[i] = ops.CreateInput{Text: item.Text, Category: item.Category, Rating: item.Rating}
	}

	result, err := ops.CreateMany(ctx, h.db, h.cfg, ops.CreateManyInput{Items: items})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the name_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.db, h.cfg, input.ref())
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the name_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.db, h.cfg, ops.ListInput{
		Category:  input.Category,
		Favorites: input.Favorites,
		Evaluated: input.Evaluated,
		Prefix:    input.Prefix,
		Sort:      input.Sort,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFavorites handles the name_favorites tool call.
func (h *Handlers) HandleFavorites(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CategoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Favorites(ctx, h.db, input.Category)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLeaderboard handles the name_leaderboard tool call.
func (h *Handlers) HandleLeaderboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LeaderboardRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Leaderboard(ctx, h.db, ops.LeaderboardInput{
		Category: input.Category,
		Limit:    input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the name_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.db, h.cfg, ops.UpdateInput{
		Ref:            input.ref(),
		IsFavorite:     input.IsFavorite,
		Rating:         input.Rating,
		TimesEvaluated: input.TimesEvaluated,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the name_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.db, h.cfg, input.ref())
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBulkDelete handles the name_bulk_delete tool call.
func (h *Handlers) HandleBulkDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BulkDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.BulkDelete(ctx, h.db, ops.BulkDeleteInput{IDs: input.IDs})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRank handles the name_rank tool call.
func (h *Handlers) HandleRank(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Rank(ctx, h.db, h.cfg, input.ref())
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSeed handles the name_seed tool call.
func (h *Handlers) HandleSeed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CategoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LoadDefaults(ctx, h.db, h.cfg, input.Category)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReset handles the name_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Reset(ctx, h.db, h.cfg, ops.ResetInput{
		Mode:     ops.ResetMode(input.Mode),
		Category: input.Category,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the name_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the name_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{
		Path:     input.Path,
		Category: input.Category,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the name_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRoundLoad handles the round_load tool call.
func (h *Handlers) HandleRoundLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoundRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	s, err := h.session(input.Category)
	if err != nil {
		return errorResult(err), nil
	}

	round, err := s.Load(ctx)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(round)
}

// HandleRoundShow handles the round_show tool call.
func (h *Handlers) HandleRoundShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoundRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	s, err := h.session(input.Category)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(s.Round())
}

// HandleRoundSelect handles the round_select tool call.
func (h *Handlers) HandleRoundSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.toggle(req, (*session.Session).Select)
}

// HandleRoundDeselect handles the round_deselect tool call.
func (h *Handlers) HandleRoundDeselect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.toggle(req, (*session.Session).Deselect)
}

func (h *Handlers) toggle(req mcp.CallToolRequest, fn func(*session.Session, string) bool) (*mcp.CallToolResult, error) {
	input, err := decode[RoundRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	s, err := h.session(input.Category)
	if err != nil {
		return errorResult(err), nil
	}

	changed := fn(s, input.ID)
	return successResult(SelectResponse{Changed: changed, Round: s.Round()})
}

// HandleRoundSubmit handles the round_submit tool call.
func (h *Handlers) HandleRoundSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RoundRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	s, err := h.session(input.Category)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := s.Submit(ctx)
	if result == nil {
		return errorResult(err), nil
	}
	resp := SubmitResponse{Result: result}
	if err != nil {
		resp.Warning = "ratings were saved but the next round could not be loaded: " + publicMessage(err)
	} else {
		resp.Round = s.Round()
	}

	return successResult(resp)
}

// Result helpers

// publicMessage returns the caller-safe message for err.
func publicMessage(err error) string {
	var cErr *errors.CradleError
	if stderrors.As(err, &cErr) && cErr.Code != errors.ErrInternal {
		return cErr.Message
	}
	return "an internal error occurred"
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cErr *errors.CradleError
	if stderrors.As(err, &cErr) {
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		if cErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
