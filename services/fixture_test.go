package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"bounty-ledger/models"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fakeOracle struct {
	mu       sync.Mutex
	err      error
	requests []VerificationRequest
}

func (f *fakeOracle) Submit(_ context.Context, req VerificationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("req-%d", len(f.requests)), nil
}

type fixture struct {
	db       *gorm.DB
	clock    *clockwork.FakeClock
	members  *MemberService
	bounties *BountyService
	oracle   *fakeOracle
}

const admin = "admin-1"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(t0)
	members := NewMemberService(db)
	require.NoError(t, members.EnsureAdmin(admin, "Admin"))

	oracle := &fakeOracle{}
	return &fixture{
		db:       db,
		clock:    clock,
		members:  members,
		bounties: NewBountyService(db, members, oracle, clock),
		oracle:   oracle,
	}
}

func (f *fixture) enroll(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.members.Enroll(id, "name-"+id, "tw-"+id, "")
		require.NoError(t, err)
	}
}

func (f *fixture) manualBounty(t *testing.T, reward int64, qty uint) uint {
	t.Helper()
	id, err := f.bounties.CreateBounty(admin, CreateBountyInput{
		Title:        "Write a blog post",
		RewardAmount: reward,
		Infinite:     qty == 0,
		Quantity:     qty,
		Manual:       true,
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) autoBounty(t *testing.T, reward int64, qty uint) uint {
	t.Helper()
	id, err := f.bounties.CreateBounty(admin, CreateBountyInput{
		Title:        "Retweet the launch",
		RewardAmount: reward,
		Infinite:     qty == 0,
		Quantity:     qty,
		ExternalRef:  "https://x.com/org/status/1",
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) balance(t *testing.T, id string) int64 {
	t.Helper()
	b, err := f.members.BalanceOf(id)
	require.NoError(t, err)
	return b
}
