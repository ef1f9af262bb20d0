package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// BaseSuite runs against a database cloned from the migrated template,
// empties it before each test and registers a fresh account. When
// TEST_SERVER_URL is set the client targets that server and no database is
// created.
//
//	type GraphSuite struct {
//	    testutil.BaseSuite
//	}
//
//	func (s *GraphSuite) TestQuery() {
//	    resp := s.Client.POST("/api/data-types/query", testutil.WithJSONBody(q))
//	}
type BaseSuite struct {
	suite.Suite
	TestDB    *TestDB
	Server    *TestServer
	Client    *HTTPClient
	Ctx       context.Context
	AccountID string

	suffix   string
	external bool
}

// SetDBSuffix names the cloned database. Call it before BaseSuite.SetupSuite.
func (s *BaseSuite) SetDBSuffix(suffix string) {
	s.suffix = suffix
}

func (s *BaseSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("database suite skipped in short mode")
	}
	s.Ctx = context.Background()

	if url := os.Getenv("TEST_SERVER_URL"); url != "" {
		s.T().Logf("running against %s", url)
		s.external = true
		s.Client = NewExternalHTTPClient(url)
		return
	}

	suffix := s.suffix
	if suffix == "" {
		suffix = "suite"
	}
	db, err := SetupTestDB(s.Ctx, suffix)
	if err != nil {
		s.T().Skipf("postgres unavailable: %v", err)
	}
	s.TestDB = db
	s.Server = NewTestServer(db)
	s.Client = NewHTTPClient(s.Server.Echo)
}

func (s *BaseSuite) TearDownSuite() {
	if s.TestDB != nil {
		s.TestDB.Close()
	}
}

func (s *BaseSuite) SetupTest() {
	if !s.external {
		s.Require().NoError(TruncateTables(s.Ctx, s.TestDB.DB), "truncate tables")
	}

	id, err := s.Client.CreateAccount(uuid.NewString())
	s.Require().NoError(err, "create account")
	s.AccountID = id
}

// SkipIfExternalServer skips tests that need direct store access.
func (s *BaseSuite) SkipIfExternalServer(reason string) {
	if s.external {
		s.T().Skipf("external server: %s", reason)
	}
}
