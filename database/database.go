package database

import (
	"context"
	"errors"
	"fmt"

	"papertrade/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidTrade       = errors.New("invalid trade")
)

// Position is a symbol with its net share count.
type Position struct {
	Symbol string
	Shares int64
}

// Store holds every read and write the application makes.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the users and transactions tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CreateUser inserts a user with the starting cash balance.
func (s *Store) CreateUser(ctx context.Context, username, hash string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	user := models.User{
		Username: username,
		Hash:     hash,
		Cash:     models.StartingCash,
	}
	if err := insertUser(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// insertUser reports a unique-index violation as ErrUsernameTaken, which
// covers a concurrent registration slipping past the lookup above.
func insertUser(db *gorm.DB, user *models.User) error {
	if err := db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// Positions returns the user's symbols with a positive net share count,
// ordered by symbol.
func (s *Store) Positions(ctx context.Context, userID uint) ([]Position, error) {
	var positions []Position
	err := s.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("symbol, CAST(SUM(shares) AS BIGINT) AS shares").
		Where("user_id = ?", userID).
		Group("symbol").
		Having("SUM(shares) > ?", 0).
		Order("symbol").
		Scan(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}
	return positions, nil
}

// OwnedShares returns the user's net share count in symbol; zero if none.
func (s *Store) OwnedShares(ctx context.Context, userID uint, symbol string) (int64, error) {
	owned, err := ownedShares(s.db.WithContext(ctx), userID, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to count shares: %w", err)
	}
	return owned, nil
}

func ownedShares(db *gorm.DB, userID uint, symbol string) (int64, error) {
	var owned int64
	err := db.Model(&models.Transaction{}).
		Select("CAST(COALESCE(SUM(shares), 0) AS BIGINT)").
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Row().Scan(&owned)
	return owned, err
}

// History returns the user's transactions, newest first.
func (s *Store) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return txs, nil
}

// Buy debits price*shares from the user's cash and records the purchase in
// one transaction. The debit only applies while cash covers the cost, so two
// concurrent buys cannot both spend the same balance.
func (s *Store) Buy(ctx context.Context, userID uint, symbol string, shares int64, price decimal.Decimal) error {
	if shares <= 0 || price.IsNegative() {
		return ErrInvalidTrade
	}
	cost := price.Mul(decimal.NewFromInt(shares))

	return s.inTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND cash >= ?", userID, cost).
			Update("cash", gorm.Expr("cash - ?", cost))
		if res.Error != nil {
			return fmt.Errorf("failed to debit cash: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return s.missingUserOr(tx, userID, ErrInsufficientFunds)
		}

		return record(tx, userID, symbol, shares, price)
	})
}

// Sell credits price*shares to the user's cash and records a negative
// transaction. The user row is written first so concurrent sells by the same
// user queue behind its lock before ownership is checked.
func (s *Store) Sell(ctx context.Context, userID uint, symbol string, shares int64, price decimal.Decimal) error {
	if shares <= 0 || price.IsNegative() {
		return ErrInvalidTrade
	}
	proceeds := price.Mul(decimal.NewFromInt(shares))

	return s.inTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("cash", gorm.Expr("cash + ?", proceeds))
		if res.Error != nil {
			return fmt.Errorf("failed to credit cash: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		owned, err := ownedShares(tx, userID, symbol)
		if err != nil {
			return fmt.Errorf("failed to count shares: %w", err)
		}
		if shares > owned {
			return ErrInsufficientShares
		}

		return record(tx, userID, symbol, -shares, price)
	})
}

func record(tx *gorm.DB, userID uint, symbol string, shares int64, price decimal.Decimal) error {
	t := models.Transaction{
		UserID: userID,
		Symbol: symbol,
		Shares: shares,
		Price:  price,
	}
	if err := tx.Create(&t).Error; err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (s *Store) missingUserOr(tx *gorm.DB, userID uint, err error) error {
	var count int64
	if cerr := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; cerr != nil {
		return fmt.Errorf("failed to fetch user: %w", cerr)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return err
}

func (s *Store) inTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
