package lending

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rafflefi/api/internal/models"
	"github.com/rafflefi/api/internal/rng"
	"github.com/rafflefi/api/internal/websocket"
)

// The pool and raffle handlers are written against their own service
// interfaces. The orchestrator satisfies both, delegating the plain
// operations and wrapping the mutating ones with journal entries, feed
// events and, for draws, the reward payout.

// CreatePool opens a pool and journals the creation.
func (s *Service) CreatePool(asset string, collateralFactor, borrowRate uint64, decimals uint8) (*models.Pool, error) {
	p, err := s.pools.CreatePool(asset, collateralFactor, borrowRate, decimals)
	if err != nil {
		return nil, err
	}

	s.record(&models.Operation{
		Asset: p.Asset,
		Type:  models.OperationTypeCreatePool,
	})
	s.events.PublishEvent(websocket.TopicPools, websocket.EventPoolCreated, p)
	return p, nil
}

func (s *Service) GetPool(asset string) (*models.Pool, error) {
	return s.pools.GetPool(asset)
}

func (s *Service) RequireActive(asset string) (*models.Pool, error) {
	return s.pools.RequireActive(asset)
}

func (s *Service) AddDeposits(asset string, amount uint64) (*models.Pool, error) {
	return s.pools.AddDeposits(asset, amount)
}

func (s *Service) SubDeposits(asset string, amount uint64) (*models.Pool, error) {
	return s.pools.SubDeposits(asset, amount)
}

func (s *Service) AddBorrows(asset string, amount uint64) (*models.Pool, error) {
	return s.pools.AddBorrows(asset, amount)
}

func (s *Service) SubBorrows(asset string, amount uint64) (*models.Pool, error) {
	return s.pools.SubBorrows(asset, amount)
}

func (s *Service) ListPools(limit, offset int) ([]*models.Pool, error) {
	return s.pools.ListPools(limit, offset)
}

func (s *Service) GetTopPools(limit int) ([]*models.Pool, error) {
	return s.pools.GetTopPools(limit)
}

// StartNewRaffle opens a raffle and journals the start.
func (s *Service) StartNewRaffle(numberOfWinners int, now time.Time) (*models.Raffle, error) {
	r, err := s.raffles.StartNewRaffle(numberOfWinners, now)
	if err != nil {
		return nil, err
	}

	s.record(&models.Operation{
		Type:     models.OperationTypeStartRaffle,
		RaffleID: r.ID,
	})
	s.events.PublishEvent(websocket.TopicRaffles, websocket.EventRaffleStarted, r)
	return r, nil
}

func (s *Service) AddTickets(account string, tickets uint64) (uint, error) {
	return s.raffles.AddTickets(account, tickets)
}

func (s *Service) FundCurrentRaffle(amount uint64) (uint, error) {
	return s.raffles.FundCurrentRaffle(amount)
}

// Draw selects the winners and pays each reward out of custody in the
// configured reward asset.
func (s *Service) Draw(raffleID uint, src rng.Source, now time.Time) ([]*models.RaffleWinner, error) {
	winners, err := s.raffles.Draw(raffleID, src, now)
	if err != nil {
		return nil, err
	}

	for _, w := range winners {
		if w.Reward == 0 {
			continue
		}
		if err := s.transfers.CreditReward(w.Account, s.cfg.RewardAsset, w.Reward); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"raffle_id": raffleID,
				"account":   w.Account,
				"reward":    w.Reward,
			}).Error("raffle reward payout failed")
		}
	}

	s.record(&models.Operation{
		Type:     models.OperationTypeDrawRaffle,
		RaffleID: raffleID,
	})
	s.events.PublishEvent(websocket.TopicRaffles, websocket.EventRaffleDrawn, map[string]interface{}{
		"raffle_id": raffleID,
		"winners":   winners,
	})
	return winners, nil
}

func (s *Service) CurrentRaffle() (*models.Raffle, error) {
	return s.raffles.CurrentRaffle()
}

func (s *Service) GetRaffle(id uint) (*models.Raffle, error) {
	return s.raffles.GetRaffle(id)
}

func (s *Service) GetEntries(raffleID uint) ([]*models.RaffleEntry, error) {
	return s.raffles.GetEntries(raffleID)
}

func (s *Service) GetWinners(raffleID uint) ([]*models.RaffleWinner, error) {
	return s.raffles.GetWinners(raffleID)
}

func (s *Service) ListRaffles(limit int) ([]*models.Raffle, error) {
	return s.raffles.ListRaffles(limit)
}
