package backup

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
	"github.com/roach88/bruch/internal/store"
	"github.com/roach88/bruch/internal/testutil"
)

var start = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, opts ...Option) (*store.Store, *Manager, *testutil.ManualClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewManualClock(start)
	opts = append([]Option{WithClock(clock)}, opts...)
	return st, NewManager(st, opts...), clock
}

func article(ean, name, price string) models.Article {
	return models.Article{EAN: ean, Name: name, Unit: models.DefaultUnit, Price: decimal.RequireFromString(price)}
}

func addSale(t *testing.T, st *store.Store, date time.Time, a models.Article) models.Sale {
	t.Helper()
	items := []models.CartItem{{Article: a, Quantity: 1}}
	sale := models.Sale{Date: date, PersonnelNumber: "1", Items: items, Total: models.ComputeTotal(items)}
	require.NoError(t, st.AddSale(context.Background(), &sale))
	return sale
}

func TestCreateBackup_Snapshot(t *testing.T) {
	ctx := context.Background()
	st, m, _ := setup(t)

	a := article("1", "Schraube", "1.99")
	require.NoError(t, st.PutArticle(ctx, a))
	addSale(t, st, start, a)

	id, err := m.CreateBackup(ctx, true)
	require.NoError(t, err)

	b, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, b.AutoBackup)
	assert.True(t, start.Equal(b.Date))
	assert.Len(t, b.Articles, 1)
	assert.Len(t, b.Sales, 1)

	// Later changes do not leak into the snapshot.
	require.NoError(t, st.PutArticle(ctx, article("2", "Mutter", "0.5")))
	b, err = m.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, b.Articles, 1)
}

func TestCreateBackup_EmptyDataset(t *testing.T) {
	ctx := context.Background()
	_, m, _ := setup(t)

	id, err := m.CreateActionBackup(ctx)
	require.NoError(t, err)

	b, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, b.AutoBackup)
	assert.Empty(t, b.Articles)
	assert.Empty(t, b.Sales)
}

func TestRetention_BelowLimitKeepsAll(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)

	for i := 0; i < 7; i++ {
		clock.Advance(time.Minute)
		_, err := m.CreateBackup(ctx, i%2 == 0)
		require.NoError(t, err)
	}

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 7)
}

func TestRetention_KeepsNewestTen(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)

	var ids []int64
	for i := 0; i < 15; i++ {
		clock.Advance(time.Minute)
		var (
			id  int64
			err error
		)
		if i%3 == 0 {
			id, err = m.CreateBackup(ctx, true)
		} else {
			id, err = m.CreateActionBackup(ctx)
		}
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, DefaultKeep)

	// The survivors are the ten most recent, newest first.
	for i, sum := range list {
		assert.Equal(t, ids[len(ids)-1-i], sum.ID)
	}
}

func TestRetention_CustomKeep(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t, WithKeep(3))

	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		_, err := m.CreateBackup(ctx, false)
		require.NoError(t, err)
	}

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 3, m.Keep())
}

func TestRetention_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	_, m, _ := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(auto bool) {
			defer wg.Done()
			_, err := m.CreateBackup(ctx, auto)
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, DefaultKeep)
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st, m, clock := setup(t)

	a := article("1", "Schraube", "1.99")
	b := article("2", "Mutter", "0.50")
	require.NoError(t, st.PutArticle(ctx, a))
	require.NoError(t, st.PutArticle(ctx, b))
	sale := addSale(t, st, start, a)
	require.NoError(t, st.SetSalePaid(ctx, sale.ID, true))

	id, err := m.CreateBackup(ctx, false)
	require.NoError(t, err)

	// Mutate everything after the backup.
	clock.Advance(time.Hour)
	require.NoError(t, st.DeleteArticle(ctx, "1"))
	require.NoError(t, st.PutArticle(ctx, article("3", "Neu", "9")))
	require.NoError(t, st.ClearSales(ctx))
	addSale(t, st, clock.Now(), b)

	clock.Advance(time.Minute)
	res, err := m.Restore(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Articles)
	assert.Equal(t, 1, res.Sales)
	assert.NotZero(t, res.SafetyBackupID)

	articles, err := st.ListArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.True(t, a.Equal(articles[0]))
	assert.True(t, b.Equal(articles[1]))

	sales, err := st.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
	assert.True(t, sales[0].Paid)

	// The safety backup holds the pre-restore state.
	safety, err := m.Get(ctx, res.SafetyBackupID)
	require.NoError(t, err)
	require.Len(t, safety.Articles, 2)
	assert.Equal(t, "2", safety.Articles[0].EAN)
	assert.Equal(t, "3", safety.Articles[1].EAN)
	assert.Len(t, safety.Sales, 1)
	assert.True(t, clock.Now().Equal(safety.Date))
}

func TestRestore_NotFoundWritesNothing(t *testing.T) {
	ctx := context.Background()
	st, m, _ := setup(t)

	require.NoError(t, st.PutArticle(ctx, article("1", "A", "1")))

	_, err := m.Restore(ctx, 404)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	n, err := st.CountBackups(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no safety backup for a missing id")

	n, err = st.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRestore_AtRetentionLimitKeepsTarget(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)

	var newest int64
	for i := 0; i < DefaultKeep; i++ {
		clock.Advance(time.Minute)
		id, err := m.CreateBackup(ctx, false)
		require.NoError(t, err)
		newest = id
	}

	clock.Advance(time.Minute)
	_, err := m.Restore(ctx, newest)
	require.NoError(t, err)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, DefaultKeep)
}

func TestDeleteBackup(t *testing.T) {
	ctx := context.Background()
	_, m, _ := setup(t)

	id, err := m.CreateBackup(ctx, false)
	require.NoError(t, err)

	require.NoError(t, m.DeleteBackup(ctx, id))
	require.NoError(t, m.DeleteBackup(ctx, id))

	_, err = m.Get(ctx, id)
	assert.True(t, apperr.IsNotFound(err))
}

func TestLastBackupTime(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)

	_, ok, err := m.LastBackupTime(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(5 * time.Minute)
	_, err = m.CreateBackup(ctx, false)
	require.NoError(t, err)

	last, ok, err := m.LastBackupTime(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, clock.Now().Equal(last))
}

func TestImportBackup(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)

	clock.Advance(time.Hour)
	id, err := m.ImportBackup(ctx, models.Backup{
		ID:         77,
		Date:       start.Add(-48 * time.Hour),
		Articles:   []models.Article{article("1", "A", "1")},
		AutoBackup: true,
	})
	require.NoError(t, err)

	b, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, b.AutoBackup)
	assert.True(t, clock.Now().Equal(b.Date))
	assert.Len(t, b.Articles, 1)
}

func TestRestore_ImportedSalesWithoutIDs(t *testing.T) {
	ctx := context.Background()
	st, m, clock := setup(t)

	a := article("1", "Schraube", "1.99")
	items := []models.CartItem{{Article: a, Quantity: 1}}
	var sales []models.Sale
	for i, personnel := range []string{"1", "2", "3"} {
		sales = append(sales, models.Sale{
			Date:            start.Add(time.Duration(i) * time.Minute),
			PersonnelNumber: personnel,
			Items:           items,
			Total:           models.ComputeTotal(items),
		})
	}

	id, err := m.ImportBackup(ctx, models.Backup{Articles: []models.Article{a}, Sales: sales})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	res, err := m.Restore(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sales)

	stored, err := st.ListSales(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	got := map[string]int64{}
	for _, sale := range stored {
		assert.NotZero(t, sale.ID)
		got[sale.PersonnelNumber] = sale.ID
	}
	assert.Len(t, got, 3)
}
