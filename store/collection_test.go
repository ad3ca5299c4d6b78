package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/dentscan/dentclaim/model"
	"github.com/dentscan/dentclaim/store"
	"github.com/dentscan/dentclaim/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedClaims(t *testing.T, col *store.Collection[model.Claim], n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c := &model.Claim{Company: "Acme", ClaimNumber: "C"}
		require.NoError(t, col.Create(context.Background(), c))
		ids = append(ids, c.ID)
	}
	return ids
}

func TestCreateAndFindByID(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	ids := seedClaims(t, col, 1)

	got, err := col.FindByID(ctx, ids[0], nil)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Company)

	_, err = col.FindByID(ctx, ids[0], store.Filter{"is_deleted": true})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = col.FindByID(ctx, model.NewID(), nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFind_NewestFirstWithWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	col := store.New[model.Claim](db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		c := &model.Claim{ClaimNumber: string(rune('A' + i)), CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, col.Create(ctx, c))
	}

	all, err := col.Find(ctx, nil, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "E", all[0].ClaimNumber)
	assert.Equal(t, "A", all[4].ClaimNumber)

	page, err := col.Find(ctx, nil, store.FindOptions{Offset: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "C", page[0].ClaimNumber)
	assert.Equal(t, "B", page[1].ClaimNumber)

	empty, err := col.Find(ctx, store.Filter{"company": "none"}, store.FindOptions{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFind_Omit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	users := store.New[model.User](db)
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &model.User{Email: "a@b.c", PasswordHash: "secret"}))

	got, err := users.Find(ctx, nil, store.FindOptions{Omit: []string{"password_hash"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].PasswordHash)
}

func TestCount(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	ids := seedClaims(t, col, 3)

	_, err := col.UpdateByID(ctx, ids[0], nil, map[string]any{"is_deleted": true})
	require.NoError(t, err)

	n, err := col.Count(ctx, store.Filter{"is_deleted": false})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = col.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestUpdateByID(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	ids := seedClaims(t, col, 1)

	got, err := col.UpdateByID(ctx, ids[0], nil, map[string]any{"company": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.Company)

	// unchanged values still return the row
	got, err = col.UpdateByID(ctx, ids[0], nil, map[string]any{"company": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "Globex", got.Company)

	_, err = col.UpdateByID(ctx, model.NewID(), nil, map[string]any{"company": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateWhere_CompareAndSet(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	ids := seedClaims(t, col, 1)

	cond := store.Filter{"id": ids[0], "status": model.StatusPending}
	n, err := col.UpdateWhere(ctx, cond, map[string]any{"status": model.StatusSubmitted})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = col.UpdateWhere(ctx, cond, map[string]any{"status": model.StatusSubmitted})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpdateMany_MatchedIsStable(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	ids := seedClaims(t, col, 3)

	target := []string{ids[0], ids[1], model.NewID()}
	patch := map[string]any{"is_archive": true}
	filter := store.Filter{"is_deleted": false}

	first, err := col.UpdateMany(ctx, target, filter, patch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Matched)

	second, err := col.UpdateMany(ctx, target, filter, patch)
	require.NoError(t, err)
	assert.Equal(t, first.Matched, second.Matched)

	untouched, err := col.FindByID(ctx, ids[2], nil)
	require.NoError(t, err)
	assert.False(t, untouched.IsArchive)

	none, err := col.UpdateMany(ctx, nil, filter, patch)
	require.NoError(t, err)
	assert.Zero(t, none.Matched)
}

func TestUpdateWhere_AllRows(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	ids := seedClaims(t, col, 2)
	_, err := col.UpdateMany(ctx, ids, nil, map[string]any{"is_archive": true})
	require.NoError(t, err)

	n, err := col.UpdateWhere(ctx, nil, map[string]any{"is_archive": false})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	archived, err := col.Count(ctx, store.Filter{"is_archive": true})
	require.NoError(t, err)
	assert.Zero(t, archived)
}

func TestDeleteWhere(t *testing.T) {
	col := store.New[model.Claim](testutil.SetupTestDB(t))
	ctx := context.Background()
	seedClaims(t, col, 2)

	n, err := col.DeleteWhere(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := col.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, left)
}
