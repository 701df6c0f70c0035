package user

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/rafflefi/api/internal/models"
)

// UserRepositoryTestSuite exercises the repository over an in-memory
// database.
type UserRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo UserRepository
}

// SetupSuite initializes the test suite
func (suite *UserRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:?cache=shared&_pragma=foreign_keys(1)"}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.User{}))
	suite.db = db
	suite.repo = NewUserRepository(db)
}

// SetupTest runs before each test
func (suite *UserRepositoryTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM users")
}

func (suite *UserRepositoryTestSuite) TestCreateAndGetByAddress() {
	u := &models.User{
		Address: "0x1111111111111111111111111111111111111111",
		Nonce:   "nonce-1",
		Roles:   pq.StringArray{"user"},
	}
	suite.Require().NoError(suite.repo.Create(u))

	got, err := suite.repo.GetByAddress(u.Address)
	suite.NoError(err)
	suite.Require().NotNil(got)
	suite.Equal(u.Address, got.Address)
	suite.Equal("nonce-1", got.Nonce)
	suite.Equal([]string{"user"}, []string(got.Roles))
}

func (suite *UserRepositoryTestSuite) TestCreateNil() {
	suite.Error(suite.repo.Create(nil))
}

func (suite *UserRepositoryTestSuite) TestGetByAddressMissing() {
	got, err := suite.repo.GetByAddress("0x2222222222222222222222222222222222222222")
	suite.NoError(err)
	suite.Nil(got)
}

func (suite *UserRepositoryTestSuite) TestGetByAddressEmpty() {
	_, err := suite.repo.GetByAddress("")
	suite.Error(err)
}

func (suite *UserRepositoryTestSuite) TestUpdateNonce() {
	u := &models.User{
		Address: "0x3333333333333333333333333333333333333333",
		Nonce:   "old",
		Roles:   pq.StringArray{"user"},
	}
	suite.Require().NoError(suite.repo.Create(u))

	suite.Require().NoError(suite.repo.UpdateNonce(u.Address, "new"))

	got, err := suite.repo.GetByAddress(u.Address)
	suite.NoError(err)
	suite.Require().NotNil(got)
	suite.Equal("new", got.Nonce)
}

func (suite *UserRepositoryTestSuite) TestUpdateNonceEmptyArgs() {
	suite.Error(suite.repo.UpdateNonce("", "nonce"))
	suite.Error(suite.repo.UpdateNonce("0x4444444444444444444444444444444444444444", ""))
}

// TestUserRepositoryTestSuite runs the test suite
func TestUserRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(UserRepositoryTestSuite))
}
