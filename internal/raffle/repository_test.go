package raffle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/rafflefi/api/internal/models"
)

// RaffleRepositoryTestSuite provides tests for the raffle repository
type RaffleRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo RaffleRepository
}

// SetupSuite initializes the test suite
func (suite *RaffleRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:?cache=shared&_pragma=foreign_keys(1)"}, &gorm.Config{})
	suite.Require().NoError(err)

	err = db.AutoMigrate(&models.Raffle{}, &models.RaffleEntry{}, &models.RaffleWinner{})
	suite.Require().NoError(err)

	suite.db = db
	suite.repo = NewRaffleRepository(db)
}

// SetupTest runs before each test
func (suite *RaffleRepositoryTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM raffle_winners")
	suite.db.Exec("DELETE FROM raffle_entries")
	suite.db.Exec("DELETE FROM raffles")
}

// TearDownSuite cleans up after all tests
func (suite *RaffleRepositoryTestSuite) TearDownSuite() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (suite *RaffleRepositoryTestSuite) TestCreateAndGetLatest() {
	first := &models.Raffle{EndTime: time.Now().UTC(), NumberOfWinners: 1, Drawn: true}
	second := &models.Raffle{EndTime: time.Now().UTC(), NumberOfWinners: 3}
	suite.NoError(suite.repo.Create(first))
	suite.NoError(suite.repo.Create(second))

	latest, err := suite.repo.GetLatest()
	suite.NoError(err)
	suite.Equal(second.ID, latest.ID)
	suite.Equal(3, latest.NumberOfWinners)
}

func (suite *RaffleRepositoryTestSuite) TestGetLatestEmpty() {
	latest, err := suite.repo.GetLatest()
	suite.NoError(err)
	suite.Nil(latest)
}

func (suite *RaffleRepositoryTestSuite) TestGetByIDMissing() {
	raffle, err := suite.repo.GetByID(42)
	suite.NoError(err)
	suite.Nil(raffle)
}

func (suite *RaffleRepositoryTestSuite) TestEntriesPreserveInsertionOrder() {
	raffle := &models.Raffle{NumberOfWinners: 1}
	suite.NoError(suite.repo.Create(raffle))

	suite.NoError(suite.repo.SaveEntry(&models.RaffleEntry{RaffleID: raffle.ID, Account: bob, Tickets: 300}))
	suite.NoError(suite.repo.SaveEntry(&models.RaffleEntry{RaffleID: raffle.ID, Account: alice, Tickets: 700}))

	// Later ticket top-ups must not reorder the entry.
	first, err := suite.repo.GetEntry(raffle.ID, bob)
	suite.NoError(err)
	first.Tickets += 100
	suite.NoError(suite.repo.SaveEntry(first))

	entries, err := suite.repo.ListEntries(raffle.ID)
	suite.NoError(err)
	suite.Len(entries, 2)
	suite.Equal(bob, entries[0].Account)
	suite.Equal(uint64(400), entries[0].Tickets)
	suite.Equal(alice, entries[1].Account)
}

func (suite *RaffleRepositoryTestSuite) TestWinnersOrderedByPosition() {
	raffle := &models.Raffle{NumberOfWinners: 2}
	suite.NoError(suite.repo.Create(raffle))

	winners := []*models.RaffleWinner{
		{RaffleID: raffle.ID, Account: bob, Position: 1, Reward: 50},
		{RaffleID: raffle.ID, Account: alice, Position: 0, Reward: 50},
	}
	suite.NoError(suite.repo.CreateWinners(winners))

	found, err := suite.repo.ListWinners(raffle.ID)
	suite.NoError(err)
	suite.Len(found, 2)
	suite.Equal(alice, found[0].Account)
	suite.Equal(bob, found[1].Account)
}

func (suite *RaffleRepositoryTestSuite) TestListNewestFirst() {
	suite.NoError(suite.repo.Create(&models.Raffle{NumberOfWinners: 1, Drawn: true}))
	suite.NoError(suite.repo.Create(&models.Raffle{NumberOfWinners: 2}))

	raffles, err := suite.repo.List(10)
	suite.NoError(err)
	suite.Len(raffles, 2)
	suite.Equal(2, raffles[0].NumberOfWinners)
}

// TestRaffleRepositoryTestSuite runs the test suite
func TestRaffleRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RaffleRepositoryTestSuite))
}
