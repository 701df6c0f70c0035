package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"github.com/rafflefi/api/internal/models"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	usdc  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

// OperationRepositoryTestSuite provides tests for the operation journal
type OperationRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo OperationRepository
}

// SetupSuite initializes the test suite
func (suite *OperationRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:?cache=shared&_pragma=foreign_keys(1)"}, &gorm.Config{})
	suite.Require().NoError(err)

	err = db.AutoMigrate(&models.Operation{})
	suite.Require().NoError(err)

	suite.db = db
	suite.repo = NewOperationRepository(db)
}

// SetupTest runs before each test
func (suite *OperationRepositoryTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM operations")
}

// TearDownSuite cleans up after all tests
func (suite *OperationRepositoryTestSuite) TearDownSuite() {
	if sqlDB, err := suite.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (suite *OperationRepositoryTestSuite) TestCreateAndGetByAccount() {
	op := &models.Operation{
		Account: alice,
		Asset:   usdc,
		Type:    models.OperationTypeDeposit,
		Amount:  1_000_000,
		Tickets: 1,
	}
	suite.NoError(suite.repo.Create(op))
	suite.NotZero(op.ID)

	ops, err := suite.repo.GetByAccount(alice, 10, 0)
	suite.NoError(err)
	suite.Len(ops, 1)
	suite.Equal(models.OperationTypeDeposit, ops[0].Type)
}

func (suite *OperationRepositoryTestSuite) TestGetByType() {
	suite.NoError(suite.repo.Create(&models.Operation{Account: alice, Asset: usdc, Type: models.OperationTypeDeposit, Amount: 1}))
	suite.NoError(suite.repo.Create(&models.Operation{Account: alice, Asset: usdc, Type: models.OperationTypeRepay, Amount: 2}))

	ops, err := suite.repo.GetByType(models.OperationTypeRepay, 10, 0)
	suite.NoError(err)
	suite.Len(ops, 1)
	suite.Equal(uint64(2), ops[0].Amount)
}

func (suite *OperationRepositoryTestSuite) TestGetByRaffleID() {
	suite.NoError(suite.repo.Create(&models.Operation{Type: models.OperationTypeStartRaffle, RaffleID: 7}))
	suite.NoError(suite.repo.Create(&models.Operation{Type: models.OperationTypeDrawRaffle, RaffleID: 7}))
	suite.NoError(suite.repo.Create(&models.Operation{Type: models.OperationTypeStartRaffle, RaffleID: 8}))

	ops, err := suite.repo.GetByRaffleID(7)
	suite.NoError(err)
	suite.Len(ops, 2)
}

func (suite *OperationRepositoryTestSuite) TestGetByDateRange() {
	suite.NoError(suite.repo.Create(&models.Operation{Account: alice, Type: models.OperationTypeBorrow, Amount: 5}))

	now := time.Now().UTC()
	ops, err := suite.repo.GetByDateRange(now.Add(-time.Hour), now.Add(time.Hour))
	suite.NoError(err)
	suite.Len(ops, 1)
}

func (suite *OperationRepositoryTestSuite) TestAccountOperationCount() {
	suite.NoError(suite.repo.Create(&models.Operation{Account: alice, Type: models.OperationTypeDeposit}))
	suite.NoError(suite.repo.Create(&models.Operation{Account: alice, Type: models.OperationTypeWithdraw}))

	count, err := suite.repo.GetAccountOperationCount(alice)
	suite.NoError(err)
	suite.Equal(int64(2), count)
}

// TestOperationRepositoryTestSuite runs the test suite
func TestOperationRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(OperationRepositoryTestSuite))
}
