package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"papertrade/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(t.TempDir()+"/finance.db"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store := New(db)
	require.NoError(t, store.Migrate())
	return store, db
}

func cashOf(t *testing.T, s *Store, id uint) decimal.Decimal {
	t.Helper()
	u, err := s.UserByID(context.Background(), id)
	require.NoError(t, err)
	return u.Cash
}

func TestCreateUser(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.True(t, decimal.NewFromInt(10000).Equal(cashOf(t, s, u.ID)))

	_, err = s.CreateUser(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserLookups(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.UserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = s.UserByID(ctx, 42)
	assert.ErrorIs(t, err, ErrUserNotFound)

	u, err := s.CreateUser(ctx, "carol", "hash")
	require.NoError(t, err)
	got, err := s.UserByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.Hash)
}

func TestBuyAndSell(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "dave", "hash")
	require.NoError(t, err)

	price := decimal.RequireFromString("125.50")
	require.NoError(t, s.Buy(ctx, u.ID, "AAPL", 4, price))
	assert.Equal(t, "9498.00", cashOf(t, s, u.ID).StringFixed(2))

	owned, err := s.OwnedShares(ctx, u.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(4), owned)

	positions, err := s.Positions(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []Position{{Symbol: "AAPL", Shares: 4}}, positions)

	err = s.Sell(ctx, u.ID, "AAPL", 5, price)
	assert.ErrorIs(t, err, ErrInsufficientShares)
	assert.Equal(t, "9498.00", cashOf(t, s, u.ID).StringFixed(2))

	require.NoError(t, s.Sell(ctx, u.ID, "AAPL", 4, decimal.NewFromInt(100)))
	assert.Equal(t, "9898.00", cashOf(t, s, u.ID).StringFixed(2))

	positions, err = s.Positions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, positions)

	history, err := s.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(-4), history[0].Shares)
	assert.Equal(t, int64(4), history[1].Shares)
}

func TestBuyInsufficientFunds(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "erin", "hash")
	require.NoError(t, err)

	err = s.Buy(ctx, u.ID, "TSLA", 101, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, "10000.00", cashOf(t, s, u.ID).StringFixed(2))

	history, err := s.History(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, s.Buy(ctx, u.ID, "TSLA", 100, decimal.NewFromInt(100)))
	assert.True(t, cashOf(t, s, u.ID).IsZero())
}

func TestTradeRejectsBadInput(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Buy(ctx, 1, "X", 0, decimal.NewFromInt(1)), ErrInvalidTrade)
	assert.ErrorIs(t, s.Sell(ctx, 1, "X", -1, decimal.NewFromInt(1)), ErrInvalidTrade)
	assert.ErrorIs(t, s.Buy(ctx, 99, "X", 1, decimal.NewFromInt(1)), ErrUserNotFound)
	assert.ErrorIs(t, s.Sell(ctx, 99, "X", 1, decimal.NewFromInt(1)), ErrUserNotFound)
}

func TestHistoryNewestFirst(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "frank", "hash")
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, sym := range []string{"T1", "T2", "T3"} {
		require.NoError(t, db.Create(&models.Transaction{
			UserID: u.ID,
			Symbol: sym,
			Shares: 1,
			Price:  decimal.NewFromInt(1),
			Time:   base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}

	history, err := s.History(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "T3", history[0].Symbol)
	assert.Equal(t, "T2", history[1].Symbol)
	assert.Equal(t, "T1", history[2].Symbol)
}

func TestPositionsAreScopedToUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a, err := s.CreateUser(ctx, "gina", "hash")
	require.NoError(t, err)
	b, err := s.CreateUser(ctx, "hank", "hash")
	require.NoError(t, err)

	require.NoError(t, s.Buy(ctx, a.ID, "MSFT", 2, decimal.NewFromInt(10)))
	require.NoError(t, s.Buy(ctx, a.ID, "AMZN", 1, decimal.NewFromInt(10)))

	positions, err := s.Positions(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []Position{{Symbol: "AMZN", Shares: 1}, {Symbol: "MSFT", Shares: 2}}, positions)

	owned, err := s.OwnedShares(ctx, b.ID, "MSFT")
	require.NoError(t, err)
	assert.Zero(t, owned)
}

func TestInsertUserReportsUniqueViolation(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateUser(ctx, "ivy", "hash")
	require.NoError(t, err)

	// the lookup in CreateUser is skipped here, as when two registrations race
	err = insertUser(db.WithContext(ctx), &models.User{Username: "ivy", Hash: "other", Cash: models.StartingCash})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "ivy").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateUserStorageFailure(t *testing.T) {
	s, db := newTestStore(t)
	require.NoError(t, db.Migrator().DropTable(&models.Transaction{}, &models.User{}))

	_, err := s.CreateUser(context.Background(), "jack", "hash")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
}

func TestInsertUserStorageFailure(t *testing.T) {
	_, db := newTestStore(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = insertUser(db, &models.User{Username: "kim", Hash: "hash", Cash: models.StartingCash})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
}

func TestConcurrentBuysNeverOverspend(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "lena", "hash")
	require.NoError(t, err)

	const attempts = 20
	price := decimal.NewFromInt(1000)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Buy(ctx, u.ID, "IBM", 1, price)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientFunds)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, "0.00", cashOf(t, s, u.ID).StringFixed(2))

	var count int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.Equal(t, int64(10), count)
}

func TestConcurrentSellsNeverOversell(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "milo", "hash")
	require.NoError(t, err)

	price := decimal.NewFromInt(100)
	require.NoError(t, s.Buy(ctx, u.ID, "IBM", 10, price))

	const attempts = 20
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Sell(ctx, u.ID, "IBM", 1, price)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientShares)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, "10000.00", cashOf(t, s, u.ID).StringFixed(2))

	owned, err := s.OwnedShares(ctx, u.ID, "IBM")
	require.NoError(t, err)
	assert.Zero(t, owned)
}
