package database

import (
	"context"

	"stocks-simulator/models"
)

// TransactionRepository defines the data operations on the trade log.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	ListByUser(ctx context.Context, userID uint) ([]models.Transaction, error)
	Holdings(ctx context.Context, userID uint) ([]models.Holding, error)
	HoldingOf(ctx context.Context, userID uint, symbol string) (int64, error)
}

// NewTransactionRepository creates a gorm-backed transaction repository.
func NewTransactionRepository(store *Store) TransactionRepository {
	return &transactionRepository{store: store}
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	return translate(r.store.conn(ctx).Create(txn).Error)
}

// ListByUser returns every transaction of the user in insertion order.
func (r *transactionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Transaction, error) {
	txns := []models.Transaction{}
	err := r.store.conn(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

// Holdings returns the open positions of the user, one per symbol with a
// positive net share count, ordered by symbol.
func (r *transactionRepository) Holdings(ctx context.Context, userID uint) ([]models.Holding, error) {
	holdings := []models.Holding{}
	err := r.store.conn(ctx).
		Model(&models.Transaction{}).
		Select("symbol, SUM(shares) AS shares").
		Where("user_id = ?", userID).
		Group("symbol").
		Having("SUM(shares) > 0").
		Order("symbol").
		Scan(&holdings).Error
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// HoldingOf returns the net share count of one symbol, 0 when never traded.
func (r *transactionRepository) HoldingOf(ctx context.Context, userID uint, symbol string) (int64, error) {
	var shares int64
	err := r.store.conn(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(shares), 0)").
		Where("user_id = ? AND symbol = ?", userID, symbol).
		Scan(&shares).Error
	if err != nil {
		return 0, err
	}
	return shares, nil
}
