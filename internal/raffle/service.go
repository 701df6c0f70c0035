package raffle

import (
	"fmt"
	"sync"
	"time"

	"github.com/rafflefi/api/internal/fixedmath"
	"github.com/rafflefi/api/internal/models"
	"github.com/rafflefi/api/internal/rng"
)

// Duration is how long a raffle stays open before it becomes drawable.
const Duration = 7 * 24 * time.Hour

// Service defines raffle lifecycle operations. Ticket accrual and
// funding target whichever raffle is currently open; both are silent
// no-ops when none is, so ledger operations never fail just because a
// draw has not been restarted yet.
type Service interface {
	StartNewRaffle(numberOfWinners int, now time.Time) (*models.Raffle, error)
	AddTickets(account string, tickets uint64) (uint, error)
	FundCurrentRaffle(amount uint64) (uint, error)
	Draw(raffleID uint, src rng.Source, now time.Time) ([]*models.RaffleWinner, error)
	CurrentRaffle() (*models.Raffle, error)
	GetRaffle(id uint) (*models.Raffle, error)
	GetEntries(raffleID uint) ([]*models.RaffleEntry, error)
	GetWinners(raffleID uint) ([]*models.RaffleWinner, error)
	ListRaffles(limit int) ([]*models.Raffle, error)
}

type service struct {
	mu   sync.Mutex
	repo RaffleRepository
}

// NewService creates a new raffle service
func NewService(repo RaffleRepository) Service {
	return &service{repo: repo}
}

// StartNewRaffle opens a raffle closing Duration from now. Only one
// raffle may be open: starting while the latest raffle is undrawn
// fails, regardless of whether its end time has passed.
func (s *service) StartNewRaffle(numberOfWinners int, now time.Time) (*models.Raffle, error) {
	if numberOfWinners < 1 {
		return nil, fmt.Errorf("number of winners %d: %w", numberOfWinners, models.ErrInvalidAmount)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.repo.GetLatest()
	if err != nil {
		return nil, err
	}
	if latest != nil && !latest.Drawn {
		return nil, fmt.Errorf("raffle %d still open: %w", latest.ID, models.ErrPreviousRaffleNotDrawn)
	}

	raffle := &models.Raffle{
		EndTime:         now.Add(Duration),
		NumberOfWinners: numberOfWinners,
	}
	if err := s.repo.Create(raffle); err != nil {
		return nil, err
	}
	return raffle, nil
}

// AddTickets credits tickets to the account's entry in the open raffle
// and returns its ID, or zero when no raffle is open or tickets is zero.
func (s *service) AddTickets(account string, tickets uint64) (uint, error) {
	if tickets == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.openRaffle()
	if err != nil || open == nil {
		return 0, err
	}

	entry, err := s.repo.GetEntry(open.ID, account)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		entry = &models.RaffleEntry{RaffleID: open.ID, Account: account}
	}

	total, err := fixedmath.CheckedAdd(entry.Tickets, tickets)
	if err != nil {
		return 0, err
	}
	entry.Tickets = total

	if err := s.repo.SaveEntry(entry); err != nil {
		return 0, err
	}
	return open.ID, nil
}

// FundCurrentRaffle grows the open raffle's reward pool and returns its
// ID, or zero when no raffle is open.
func (s *service) FundCurrentRaffle(amount uint64) (uint, error) {
	if amount == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	open, err := s.openRaffle()
	if err != nil || open == nil {
		return 0, err
	}

	pool, err := fixedmath.CheckedAdd(open.TotalRewardPool, amount)
	if err != nil {
		return 0, err
	}
	open.TotalRewardPool = pool

	if err := s.repo.Update(open); err != nil {
		return 0, err
	}
	return open.ID, nil
}

// Draw selects winners weighted by ticket count, with replacement: one
// account holding most of the tickets can take several positions. Each
// winner receives an equal floor share of the reward pool; division
// dust stays unawarded. The draw count is capped at the participant
// count so an undersubscribed raffle never splits the pool across
// phantom positions.
func (s *service) Draw(raffleID uint, src rng.Source, now time.Time) ([]*models.RaffleWinner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raffle, err := s.repo.GetByID(raffleID)
	if err != nil {
		return nil, err
	}
	if raffle == nil {
		return nil, fmt.Errorf("raffle %d: %w", raffleID, models.ErrRaffleNotFound)
	}
	if raffle.Drawn {
		return nil, fmt.Errorf("raffle %d: %w", raffleID, models.ErrAlreadyDrawn)
	}
	if now.Before(raffle.EndTime) {
		return nil, fmt.Errorf("raffle %d ends %s: %w", raffleID, raffle.EndTime.Format(time.RFC3339), models.ErrRaffleNotEnded)
	}

	entries, err := s.repo.ListEntries(raffleID)
	if err != nil {
		return nil, err
	}

	totalTickets := uint64(0)
	for _, e := range entries {
		totalTickets, err = fixedmath.CheckedAdd(totalTickets, e.Tickets)
		if err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 || totalTickets == 0 {
		return nil, fmt.Errorf("raffle %d: %w", raffleID, models.ErrNoParticipants)
	}

	winnersCount := raffle.NumberOfWinners
	if winnersCount > len(entries) {
		winnersCount = len(entries)
	}
	rewardPerWinner := raffle.TotalRewardPool / uint64(winnersCount)

	winners := make([]*models.RaffleWinner, 0, winnersCount)
	for position := 0; position < winnersCount; position++ {
		r, err := src.Uint64n(totalTickets)
		if err != nil {
			return nil, err
		}

		picked := entries[len(entries)-1]
		cumulative := uint64(0)
		for _, e := range entries {
			cumulative += e.Tickets
			if cumulative > r {
				picked = e
				break
			}
		}

		winners = append(winners, &models.RaffleWinner{
			RaffleID: raffleID,
			Account:  picked.Account,
			Position: position,
			Reward:   rewardPerWinner,
		})
	}

	if err := s.repo.CreateWinners(winners); err != nil {
		return nil, err
	}

	raffle.Drawn = true
	if err := s.repo.Update(raffle); err != nil {
		return nil, err
	}
	return winners, nil
}

// CurrentRaffle returns the open raffle, or nil when every raffle has
// been drawn.
func (s *service) CurrentRaffle() (*models.Raffle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openRaffle()
}

// openRaffle is the latest raffle when it is undrawn. Callers hold mu.
func (s *service) openRaffle() (*models.Raffle, error) {
	latest, err := s.repo.GetLatest()
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Drawn {
		return nil, nil
	}
	return latest, nil
}

// GetRaffle returns a raffle by ID, or nil when absent.
func (s *service) GetRaffle(id uint) (*models.Raffle, error) {
	return s.repo.GetByID(id)
}

// GetEntries returns a raffle's entries in first-contribution order.
func (s *service) GetEntries(raffleID uint) ([]*models.RaffleEntry, error) {
	return s.repo.ListEntries(raffleID)
}

// GetWinners returns a raffle's winners ordered by position.
func (s *service) GetWinners(raffleID uint) ([]*models.RaffleWinner, error) {
	return s.repo.ListWinners(raffleID)
}

// ListRaffles returns raffles newest first.
func (s *service) ListRaffles(limit int) ([]*models.Raffle, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(limit)
}
