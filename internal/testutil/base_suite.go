package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/spahub/billing/internal/config"
	"github.com/spahub/billing/internal/logger"
)

// BaseServiceTestSuite wires the in-memory stores and fakes every service test
// needs. Suites embed it and call SetupSuite/SetupTest from their hooks.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx context.Context

	cfg    *config.Configuration
	log    *logger.Logger
	db     *FakeDBClient
	subs   *InMemorySubscriptionStore
	profs  *InMemoryProfileStore
	pay    *FakePaymentGateway
	notify *RecordingNotifier
}

func (s *BaseServiceTestSuite) SetupSuite() {
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
	s.db = NewFakeDBClient()
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.subs = NewInMemorySubscriptionStore()
	s.profs = NewInMemoryProfileStore()
	s.pay = NewFakePaymentGateway()
	s.notify = NewRecordingNotifier()
}

func (s *BaseServiceTestSuite) GetContext() context.Context          { return s.ctx }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration     { return s.cfg }
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger            { return s.log }
func (s *BaseServiceTestSuite) GetDB() *FakeDBClient                 { return s.db }
func (s *BaseServiceTestSuite) GetSubscriptionStore() *InMemorySubscriptionStore {
	return s.subs
}
func (s *BaseServiceTestSuite) GetProfileStore() *InMemoryProfileStore { return s.profs }
func (s *BaseServiceTestSuite) GetPaymentGateway() *FakePaymentGateway { return s.pay }
func (s *BaseServiceTestSuite) GetNotifier() *RecordingNotifier        { return s.notify }
