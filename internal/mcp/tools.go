package mcp

import "github.com/mark3labs/mcp-go/mcp"

var categoryParam = mcp.WithString("category",
	mcp.Description("Name category: female or male"),
	mcp.Enum("female", "male"),
)

var requiredCategoryParam = mcp.WithString("category",
	mcp.Required(),
	mcp.Description("Name category: female or male"),
	mcp.Enum("female", "male"),
)

// refParams address a single name by id, or by text within a category.
var refParams = []mcp.ToolOption{
	mcp.WithString("id", mcp.Description("Name ID (ULID). Use instead of text+category.")),
	mcp.WithString("text", mcp.Description("Name text; matched after canonicalization. Requires category.")),
	categoryParam,
}

func withRef(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append(append([]mcp.ToolOption{}, refParams...), opts...)
}

var createToolDef = mcp.NewTool("name_create",
	mcp.WithDescription("Create a name. Fails with NAME_ALREADY_EXISTS if the canonical text already exists in the category."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Name text: letters, spaces and apostrophes")),
	requiredCategoryParam,
	mcp.WithNumber("rating", mcp.Description("Starting rating (default: configured initial rating)")),
)

var createManyToolDef = mcp.NewTool("name_create_many",
	mcp.WithDescription("Create several names. Each item succeeds or fails on its own; every outcome is reported."),
	mcp.WithArray("items",
		mcp.Required(),
		mcp.Description("Names to create (max 500)"),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text":     map[string]any{"type": "string"},
				"category": map[string]any{"type": "string", "enum": []string{"female", "male"}},
				"rating":   map[string]any{"type": "number"},
			},
			"required": []string{"text", "category"},
		}),
	),
)

var fetchToolDef = mcp.NewTool("name_fetch",
	append([]mcp.ToolOption{
		mcp.WithDescription("Fetch one name by id or by text+category. Returns found=false when absent."),
	}, refParams...)...,
)

var listToolDef = mcp.NewTool("name_list",
	mcp.WithDescription("List names with optional filters and pagination."),
	categoryParam,
	mcp.WithBoolean("favorites", mcp.Description("Only favorites")),
	mcp.WithBoolean("evaluated", mcp.Description("true: only rated names; false: only never-rated names")),
	mcp.WithString("prefix", mcp.Description("Text prefix")),
	mcp.WithString("sort", mcp.Description("Sort order (default text)"), mcp.Enum("text", "rating", "created")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var favoritesToolDef = mcp.NewTool("name_favorites",
	mcp.WithDescription("List every favorite name in a category."),
	requiredCategoryParam,
)

var leaderboardToolDef = mcp.NewTool("name_leaderboard",
	mcp.WithDescription("Names of a category ranked by rating, highest first."),
	requiredCategoryParam,
	mcp.WithNumber("limit", mcp.Description("Return only the top N (default: all)")),
)

var updateToolDef = mcp.NewTool("name_update",
	withRef(
		mcp.WithDescription("Update a name's favorite flag, rating or evaluation count. Text and category cannot change."),
		mcp.WithBoolean("is_favorite", mcp.Description("Favorite flag")),
		mcp.WithNumber("rating", mcp.Description("New rating (not below the configured floor)")),
		mcp.WithNumber("times_evaluated", mcp.Description("New evaluation count (>= 0)")),
	)...,
)

var deleteToolDef = mcp.NewTool("name_delete",
	withRef(mcp.WithDescription("Delete a name. Deleting a missing name is not an error."))...,
)

var bulkDeleteToolDef = mcp.NewTool("name_bulk_delete",
	mcp.WithDescription("Delete names by id in one transaction; reports which ids existed."),
	mcp.WithArray("ids",
		mcp.Required(),
		mcp.Description("Name IDs (max 500)"),
		mcp.Items(map[string]any{"type": "string"}),
	),
)

var rankToolDef = mcp.NewTool("name_rank",
	mcp.WithDescription("1-based rank of a name within its category by rating. Returns found=false when absent."),
	mcp.WithString("id", mcp.Description("Name ID (ULID)")),
	mcp.WithString("text", mcp.Description("Name text")),
	requiredCategoryParam,
)

var seedToolDef = mcp.NewTool("name_seed",
	mcp.WithDescription("Load the bundled default names, skipping names that already exist."),
	categoryParam,
)

var resetToolDef = mcp.NewTool("name_reset",
	mcp.WithDescription("Reset the store: clear (delete names), defaults (delete then seed), or ratings (restore initial ratings)."),
	mcp.WithString("mode", mcp.Required(), mcp.Enum("clear", "defaults", "ratings")),
	categoryParam,
)

var statsToolDef = mcp.NewTool("name_stats",
	mcp.WithDescription("Per-category counts and rating range."),
)

var exportToolDef = mcp.NewTool("name_export",
	mcp.WithDescription("Export names to a JSONL file (default: ~/.cradle/exports)."),
	mcp.WithString("path", mcp.Description("Destination .jsonl path")),
	categoryParam,
)

var importToolDef = mcp.NewTool("name_import",
	mcp.WithDescription("Import names from a JSONL export. Each line succeeds or fails on its own."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl path")),
)

var roundLoadToolDef = mcp.NewTool("round_load",
	mcp.WithDescription("Sample a new round of names for a category, discarding current choices."),
	requiredCategoryParam,
)

var roundShowToolDef = mcp.NewTool("round_show",
	mcp.WithDescription("Show the current round: presented and chosen names."),
	requiredCategoryParam,
)

var roundSelectToolDef = mcp.NewTool("round_select",
	mcp.WithDescription("Choose a presented name. No-op (selected=false) when at the selection cap or not presented."),
	requiredCategoryParam,
	mcp.WithString("id", mcp.Required(), mcp.Description("Name ID")),
)

var roundDeselectToolDef = mcp.NewTool("round_deselect",
	mcp.WithDescription("Return a chosen name to the presented set."),
	requiredCategoryParam,
	mcp.WithString("id", mcp.Required(), mcp.Description("Name ID")),
)

var roundSubmitToolDef = mcp.NewTool("round_submit",
	mcp.WithDescription("Submit the round: chosen names win against the group, the rest lose. Loads the next round."),
	requiredCategoryParam,
)
