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

func TestSale_AddAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestArticle("1", "Schraube", "1.99")

	first := createTestSale(baseTime, a, 1)
	second := createTestSale(baseTime.Add(time.Minute), a, 2)
	require.NoError(t, s.AddSale(ctx, &first))
	require.NoError(t, s.AddSale(ctx, &second))

	assert.Positive(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	// Deleted ids are not reused.
	require.NoError(t, s.DeleteSale(ctx, second.ID))
	third := createTestSale(baseTime.Add(2*time.Minute), a, 1)
	require.NoError(t, s.AddSale(ctx, &third))
	assert.Greater(t, third.ID, second.ID)
}

func TestSale_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	sale := createTestSale(baseTime, createTestArticle("1", "Schraube", "1.99"), 3)
	require.NoError(t, s.AddSale(ctx, &sale))

	got, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, got.ID)
	assert.True(t, sale.Date.Equal(got.Date))
	assert.Equal(t, "4711", got.PersonnelNumber)
	assert.Equal(t, "5.97", got.Total.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, "Schraube", got.Items[0].Name)
	assert.False(t, got.Paid)
}

func TestSale_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestArticle("1", "A", "1")

	for _, offset := range []time.Duration{time.Hour, 0, 2 * time.Hour} {
		sale := createTestSale(baseTime.Add(offset), a, 1)
		require.NoError(t, s.AddSale(ctx, &sale))
	}

	sales, err := s.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	for i := 1; i < len(sales); i++ {
		assert.True(t, sales[i-1].Date.After(sales[i].Date), "sales not newest first at %d", i)
	}

	n, err := s.CountSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSale_SetPaid(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	sale := createTestSale(baseTime, createTestArticle("1", "A", "1"), 1)
	require.NoError(t, s.AddSale(ctx, &sale))

	require.NoError(t, s.SetSalePaid(ctx, sale.ID, true))
	got, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, got.Paid)

	err = s.SetSalePaid(ctx, sale.ID+100, true)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSale_GetMissing(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetSale(context.Background(), 42)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSale_ReplaceKeepsIDs(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestArticle("1", "A", "1")

	existing := createTestSale(baseTime, a, 1)
	require.NoError(t, s.AddSale(ctx, &existing))

	restored := []models.Sale{
		createTestSale(baseTime.Add(time.Hour), a, 1),
		createTestSale(baseTime, a, 2),
	}
	restored[0].ID = 17
	restored[1].ID = 5
	require.NoError(t, s.ReplaceSales(ctx, restored))

	sales, err := s.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, int64(17), sales[0].ID)
	assert.Equal(t, int64(5), sales[1].ID)

	// New sales continue after the highest id ever used.
	next := createTestSale(baseTime.Add(2*time.Hour), a, 1)
	require.NoError(t, s.AddSale(ctx, &next))
	assert.Greater(t, next.ID, int64(17))
}

func TestSale_ReplaceAssignsMissingIDs(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	a := createTestArticle("1", "A", "1")

	restored := []models.Sale{
		createTestSale(baseTime, a, 1),
		createTestSale(baseTime.Add(time.Minute), a, 2),
		createTestSale(baseTime.Add(2*time.Minute), a, 3),
	}
	restored[1].ID = 1
	require.NoError(t, s.ReplaceSales(ctx, restored))

	sales, err := s.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 3)

	ids := map[int64]bool{}
	for _, sale := range sales {
		assert.NotZero(t, sale.ID)
		ids[sale.ID] = true
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, int64(1), sales[1].ID, "explicit id is kept")
}

func TestSale_Clear(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	sale := createTestSale(baseTime, createTestArticle("1", "A", "1"), 1)
	require.NoError(t, s.AddSale(ctx, &sale))
	require.NoError(t, s.ClearSales(ctx))

	sales, err := s.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, sales)
}
