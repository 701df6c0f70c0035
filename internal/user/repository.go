package user

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/models"
)

// UserRepository persists the wallets the API has authenticated. The
// auth layer creates a record the first time an address signs in, keeps
// the last nonce that authenticated it and reads role grants from here.
type UserRepository interface {
	Create(user *models.User) error
	GetByAddress(address string) (*models.User, error)
	UpdateNonce(address, nonce string) error
}

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	return r.db.Create(user).Error
}

// GetByAddress retrieves a user by their Ethereum address
func (r *userRepository) GetByAddress(address string) (*models.User, error) {
	if address == "" {
		return nil, errors.New("address cannot be empty")
	}

	var user models.User
	err := r.db.Where("address = ?", address).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpdateNonce updates a user's nonce
func (r *userRepository) UpdateNonce(address, nonce string) error {
	if address == "" || nonce == "" {
		return errors.New("address and nonce cannot be empty")
	}
	return r.db.Model(&models.User{}).Where("address = ?", address).Update("nonce", nonce).Error
}
