package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cradle/internal/errors"
)

func TestRank_PinnedScenario(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	mustCreate(t, database, cfg, "Hadley", "female", 1400)
	mustCreate(t, database, cfg, "Amara", "female", 1600)
	mustCreate(t, database, cfg, "Lily", "female", 1500)

	for want, text := range []string{"Amara", "Lily", "Hadley"} {
		out, err := Rank(ctx, database, cfg, RankInput{Text: text, Category: "female"})
		require.NoError(t, err)
		require.True(t, out.Found, text)
		require.Equal(t, want+1, out.Rank, text)
		require.Equal(t, 3, out.Total)
	}
}

func TestRank_ConsistentWithLeaderboard(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	_, err := LoadDefaults(ctx, database, cfg, "male")
	require.NoError(t, err)

	// Spread ratings with some ties.
	board, err := Leaderboard(ctx, database, LeaderboardInput{Category: "male"})
	require.NoError(t, err)
	for i, e := range board.Items {
		_, err := Update(ctx, database, cfg, UpdateInput{Ref: Ref{ID: e.ID}, Rating: intPtr(1000 + (i%7)*50)})
		require.NoError(t, err)
	}

	board, err = Leaderboard(ctx, database, LeaderboardInput{Category: "male"})
	require.NoError(t, err)
	seen := make(map[int]bool)
	for _, e := range board.Items {
		out, err := Rank(ctx, database, cfg, RankInput{ID: e.ID, Category: "male"})
		require.NoError(t, err)
		require.True(t, out.Found)
		require.Equal(t, e.Rank, out.Rank, e.Text)
		require.False(t, seen[out.Rank], "duplicate rank %d", out.Rank)
		seen[out.Rank] = true
	}
	require.Len(t, seen, board.Total)
}

func TestRank_ReflectsUpdates(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	mustCreate(t, database, cfg, "Amara", "female", 1600)
	lily := mustCreate(t, database, cfg, "Lily", "female", 1500)

	out, err := Rank(ctx, database, cfg, RankInput{ID: lily.ID, Category: "female"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Rank)

	_, err = Update(ctx, database, cfg, UpdateInput{Ref: Ref{ID: lily.ID}, Rating: intPtr(1700)})
	require.NoError(t, err)

	out, err = Rank(ctx, database, cfg, RankInput{ID: lily.ID, Category: "female"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Rank)

	_, err = Delete(ctx, database, cfg, DeleteInput{Text: "Amara", Category: "female"})
	require.NoError(t, err)
	out, err = Rank(ctx, database, cfg, RankInput{ID: lily.ID, Category: "female"})
	require.NoError(t, err)
	require.Equal(t, 1, out.Total)
}

func TestRank_NotFound(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	leo := mustCreate(t, database, cfg, "Leo", "male", 1200)

	tests := []struct {
		name  string
		input RankInput
	}{
		{"missing text", RankInput{Text: "Nobody", Category: "female"}},
		{"missing id", RankInput{ID: "01NOPE", Category: "male"}},
		{"other category", RankInput{ID: leo.ID, Category: "female"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Rank(ctx, database, cfg, tt.input)
			require.NoError(t, err)
			require.False(t, out.Found)
			require.Zero(t, out.Rank)
		})
	}
}

func TestRank_RequiresCategory(t *testing.T) {
	database, cfg := setupOps(t)

	_, err := Rank(context.Background(), database, cfg, RankInput{ID: "01A"})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}
