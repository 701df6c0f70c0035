package raffle

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/models"
)

// RaffleRepository interface defines raffle database operations
type RaffleRepository interface {
	Create(raffle *models.Raffle) error
	GetByID(id uint) (*models.Raffle, error)
	GetLatest() (*models.Raffle, error)
	Update(raffle *models.Raffle) error
	List(limit int) ([]*models.Raffle, error)

	GetEntry(raffleID uint, account string) (*models.RaffleEntry, error)
	SaveEntry(entry *models.RaffleEntry) error
	ListEntries(raffleID uint) ([]*models.RaffleEntry, error)

	CreateWinners(winners []*models.RaffleWinner) error
	ListWinners(raffleID uint) ([]*models.RaffleWinner, error)
}

// raffleRepository implements RaffleRepository interface
type raffleRepository struct {
	db *gorm.DB
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *gorm.DB) RaffleRepository {
	return &raffleRepository{db: db}
}

// Create persists a new raffle
func (r *raffleRepository) Create(raffle *models.Raffle) error {
	if raffle == nil {
		return errors.New("raffle cannot be nil")
	}
	return r.db.Create(raffle).Error
}

// GetByID retrieves a raffle by its ID
func (r *raffleRepository) GetByID(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.First(&raffle, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &raffle, nil
}

// GetLatest retrieves the raffle with the highest ID
func (r *raffleRepository) GetLatest() (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.Order("id DESC").First(&raffle).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &raffle, nil
}

// Update saves raffle changes
func (r *raffleRepository) Update(raffle *models.Raffle) error {
	if raffle == nil {
		return errors.New("raffle cannot be nil")
	}
	return r.db.Save(raffle).Error
}

// List retrieves raffles newest first
func (r *raffleRepository) List(limit int) ([]*models.Raffle, error) {
	var raffles []*models.Raffle
	err := r.db.Order("id DESC").Limit(limit).Find(&raffles).Error
	return raffles, err
}

// GetEntry retrieves one participant's entry in a raffle
func (r *raffleRepository) GetEntry(raffleID uint, account string) (*models.RaffleEntry, error) {
	var entry models.RaffleEntry
	err := r.db.Where("raffle_id = ? AND account = ?", raffleID, account).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// SaveEntry creates or updates a raffle entry
func (r *raffleRepository) SaveEntry(entry *models.RaffleEntry) error {
	if entry == nil {
		return errors.New("entry cannot be nil")
	}
	return r.db.Save(entry).Error
}

// ListEntries retrieves a raffle's entries in first-contribution order
func (r *raffleRepository) ListEntries(raffleID uint) ([]*models.RaffleEntry, error) {
	var entries []*models.RaffleEntry
	err := r.db.Where("raffle_id = ?", raffleID).Order("id ASC").Find(&entries).Error
	return entries, err
}

// CreateWinners persists drawn winners in one batch
func (r *raffleRepository) CreateWinners(winners []*models.RaffleWinner) error {
	if len(winners) == 0 {
		return nil
	}
	return r.db.Create(winners).Error
}

// ListWinners retrieves a raffle's winners ordered by position
func (r *raffleRepository) ListWinners(raffleID uint) ([]*models.RaffleWinner, error) {
	var winners []*models.RaffleWinner
	err := r.db.Where("raffle_id = ?", raffleID).Order("position ASC").Find(&winners).Error
	return winners, err
}
