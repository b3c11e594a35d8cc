package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

func TestBackup_AddAndGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestArticle("1", "Schraube", "1.99")

	sale := createTestSale(baseTime, a, 2)
	sale.ID = 3
	b := models.Backup{
		Date:       baseTime,
		Articles:   []models.Article{a},
		Sales:      []models.Sale{sale},
		AutoBackup: true,
	}
	require.NoError(t, s.AddBackup(ctx, &b))
	require.Positive(t, b.ID)

	got, err := s.GetBackup(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.AutoBackup)
	assert.True(t, baseTime.Equal(got.Date))
	require.Len(t, got.Articles, 1)
	assert.True(t, a.Equal(got.Articles[0]))
	require.Len(t, got.Sales, 1)
	assert.Equal(t, int64(3), got.Sales[0].ID)
}

func TestBackup_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	b := models.Backup{Date: baseTime}
	require.NoError(t, s.AddBackup(ctx, &b))

	got, err := s.GetBackup(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Articles)
	assert.Empty(t, got.Sales)
}

func TestBackup_GetMissing(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetBackup(context.Background(), 99)
	assert.True(t, apperr.IsNotFound(err))
}

func TestBackup_ListNewestFirstWithTies(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	dates := []time.Time{baseTime, baseTime.Add(time.Hour), baseTime.Add(time.Hour), baseTime.Add(-time.Hour)}
	ids := make([]int64, len(dates))
	for i, d := range dates {
		b := models.Backup{Date: d, Articles: []models.Article{createTestArticle("1", "A", "1")}}
		require.NoError(t, s.AddBackup(ctx, &b))
		ids[i] = b.ID
	}

	list, err := s.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)

	got := make([]int64, len(list))
	for i, sum := range list {
		got[i] = sum.ID
		assert.Equal(t, 1, sum.ArticleCount)
		assert.Equal(t, 0, sum.SaleCount)
	}
	assert.Equal(t, []int64{ids[2], ids[1], ids[0], ids[3]}, got)
}

func TestBackup_LatestDate(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, ok, err := s.LatestBackupDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, d := range []time.Time{baseTime, baseTime.Add(3 * time.Hour), baseTime.Add(time.Hour)} {
		b := models.Backup{Date: d}
		require.NoError(t, s.AddBackup(ctx, &b))
	}

	latest, ok, err := s.LatestBackupDate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, baseTime.Add(3*time.Hour).Equal(latest))
}

func TestBackup_Delete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	var ids []int64
	for i := 0; i < 3; i++ {
		b := models.Backup{Date: baseTime.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, s.AddBackup(ctx, &b))
		ids = append(ids, b.ID)
	}

	require.NoError(t, s.DeleteBackup(ctx, ids[0]))
	require.NoError(t, s.DeleteBackup(ctx, ids[0]))
	require.NoError(t, s.DeleteBackups(ctx, ids[1:]))
	require.NoError(t, s.DeleteBackups(ctx, nil))

	n, err := s.CountBackups(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
