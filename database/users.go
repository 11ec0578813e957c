package database

import (
	"context"

	"stocks-simulator/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"
)

// UserRepository defines the data operations on users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error
}

// NewUserRepository creates a gorm-backed user repository.
func NewUserRepository(store *Store) UserRepository {
	return &userRepository{store: store}
}

type userRepository struct {
	store *Store
}

// Create inserts the user. A taken username yields ErrDuplicate.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.store.conn(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.store.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByIDForUpdate loads the user and locks its row until the surrounding
// transaction ends.
func (r *userRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.store.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.store.conn(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.store.conn(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error {
	res := r.store.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("cash", cash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
