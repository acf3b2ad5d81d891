package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/cradle/internal/errors"
)

func TestDelete_ByID(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	n := mustCreate(t, database, cfg, "Amara", "female", 1200)

	out, err := Delete(ctx, database, cfg, DeleteInput{ID: n.ID})
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.Equal(t, n.ID, out.ID)

	got, err := Fetch(ctx, database, cfg, FetchInput{ID: n.ID})
	require.NoError(t, err)
	require.False(t, got.Found)
}

func TestDelete_ByText(t *testing.T) {
	database, cfg := setupOps(t)
	n := mustCreate(t, database, cfg, "Ana Sofia", "female", 1200)

	out, err := Delete(context.Background(), database, cfg, DeleteInput{Text: "ana sofia", Category: "female"})
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.Equal(t, n.ID, out.ID)
}

func TestDelete_Idempotent(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	n := mustCreate(t, database, cfg, "Leo", "male", 1200)

	for i := 0; i < 2; i++ {
		out, err := Delete(ctx, database, cfg, DeleteInput{ID: n.ID})
		require.NoError(t, err)
		require.Equal(t, i == 0, out.Deleted)
	}

	out, err := Delete(ctx, database, cfg, DeleteInput{Text: "Nobody", Category: "male"})
	require.NoError(t, err)
	require.False(t, out.Deleted)
}

func TestBulkDelete(t *testing.T) {
	database, cfg := setupOps(t)
	ctx := context.Background()
	a := mustCreate(t, database, cfg, "Amara", "female", 1200)
	b := mustCreate(t, database, cfg, "Lily", "female", 1200)
	keep := mustCreate(t, database, cfg, "Leo", "male", 1200)

	out, err := BulkDelete(ctx, database, BulkDeleteInput{IDs: []string{a.ID, "01NOPE", b.ID}})
	require.NoError(t, err)
	require.Equal(t, 2, out.Deleted)
	require.Equal(t, 1, out.Missing)
	require.Equal(t, []DeleteOutput{
		{ID: a.ID, Deleted: true},
		{ID: "01NOPE", Deleted: false},
		{ID: b.ID, Deleted: true},
	}, out.Items)

	got, err := Fetch(ctx, database, cfg, FetchInput{ID: keep.ID})
	require.NoError(t, err)
	require.True(t, got.Found)
}

func TestBulkDelete_InvalidInput(t *testing.T) {
	database, _ := setupOps(t)

	for _, ids := range [][]string{nil, {"01A", "  "}} {
		_, err := BulkDelete(context.Background(), database, BulkDeleteInput{IDs: ids})
		if !errors.Is(err, errors.ErrInvalidRequest) {
			t.Errorf("BulkDelete(%v): expected INVALID_REQUEST, got %v", ids, err)
		}
	}
}
