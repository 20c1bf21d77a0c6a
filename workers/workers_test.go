package workers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bounty-ledger/models"
	"bounty-ledger/services"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type stubOracle struct {
	mu       sync.Mutex
	n        int
	statuses map[string]*services.OracleStatus
}

func (o *stubOracle) Submit(context.Context, services.VerificationRequest) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.n++
	return fmt.Sprintf("req-%03d", o.n), nil
}

func (o *stubOracle) Status(_ context.Context, id string) (*services.OracleStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.statuses[id]
	if !ok {
		return nil, errors.New("oracle: unknown request")
	}
	return st, nil
}

func TestOraclePollWorkerSettlesFulfilledRequests(t *testing.T) {
	db := newTestDB(t)
	members := services.NewMemberService(db)
	require.NoError(t, members.EnsureAdmin("admin", "Admin"))
	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := members.Enroll(id, id, "", "")
		require.NoError(t, err)
	}

	oracle := &stubOracle{statuses: map[string]*services.OracleStatus{}}
	bounties := services.NewBountyService(db, members, oracle, clockwork.NewFakeClock())
	bountyID, err := bounties.CreateBounty("admin", services.CreateBountyInput{
		Title: "Share", RewardAmount: 20, Infinite: true, ExternalRef: "post-1",
	})
	require.NoError(t, err)

	var reqs []string
	for _, id := range []string{"u1", "u2", "u3"} {
		r, err := bounties.SubmitApplication(testContext(t), bountyID, id)
		require.NoError(t, err)
		reqs = append(reqs, r.OracleRequestID)
	}

	oracle.statuses[reqs[0]] = &services.OracleStatus{RequestID: reqs[0], Fulfilled: true, Result: true}
	oracle.statuses[reqs[1]] = &services.OracleStatus{RequestID: reqs[1], Fulfilled: false}
	// reqs[2] unknown to the oracle: logged and retried next tick

	worker := NewOraclePollWorker(bounties, oracle, time.Minute)
	n, err := worker.PollOnce(testContext(t))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	balance, err := members.BalanceOf("u1")
	require.NoError(t, err)
	require.Equal(t, int64(20), balance)

	// webhook already delivered the second result; polling must not double-settle
	oracle.statuses[reqs[1]] = &services.OracleStatus{RequestID: reqs[1], Fulfilled: true, Result: true}
	require.NoError(t, bounties.OnFulfillment(reqs[1], true))

	n, err = worker.PollOnce(testContext(t))
	require.NoError(t, err)
	require.Zero(t, n)

	balance, err = members.BalanceOf("u2")
	require.NoError(t, err)
	require.Equal(t, int64(20), balance)
}

func TestOraclePollWorkerReachesRequestsBehindUnansweredBatch(t *testing.T) {
	db := newTestDB(t)
	members := services.NewMemberService(db)
	require.NoError(t, members.EnsureAdmin("admin", "Admin"))

	oracle := &stubOracle{statuses: map[string]*services.OracleStatus{}}
	clock := clockwork.NewFakeClock()
	bounties := services.NewBountyService(db, members, oracle, clock)
	bountyID, err := bounties.CreateBounty("admin", services.CreateBountyInput{
		Title: "Share", RewardAmount: 5, Infinite: true, ExternalRef: "post-1",
	})
	require.NoError(t, err)

	var reqs []string
	for i := 1; i <= 7; i++ {
		id := fmt.Sprintf("u%d", i)
		_, err := members.Enroll(id, id, "", "")
		require.NoError(t, err)
		r, err := bounties.SubmitApplication(testContext(t), bountyID, id)
		require.NoError(t, err)
		reqs = append(reqs, r.OracleRequestID)
		clock.Advance(time.Minute)
	}

	// the six oldest never get an answer, only the newest one does
	for _, id := range reqs[:6] {
		oracle.statuses[id] = &services.OracleStatus{RequestID: id}
	}
	last := reqs[6]
	oracle.statuses[last] = &services.OracleStatus{RequestID: last, Fulfilled: true, Result: true}

	worker := NewOraclePollWorker(bounties, oracle, time.Minute)
	worker.BatchSize = 3

	for round := 0; round < 2; round++ {
		n, err := worker.PollOnce(testContext(t))
		require.NoError(t, err)
		require.Zero(t, n, "round %d", round)
	}

	n, err := worker.PollOnce(testContext(t))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	done, err := bounties.CheckFulfillment(last)
	require.NoError(t, err)
	require.True(t, done)
	balance, err := members.BalanceOf("u7")
	require.NoError(t, err)
	require.Equal(t, int64(5), balance)

	// cursor wrapped: the next pass starts over at the oldest entries
	oracle.statuses[reqs[0]] = &services.OracleStatus{RequestID: reqs[0], Fulfilled: true, Result: false}
	n, err = worker.PollOnce(testContext(t))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestMemberSyncWorkerUpdatesEnrolledMembersOnly(t *testing.T) {
	db := newTestDB(t)
	members := services.NewMemberService(db)
	_, err := members.Enroll("u1", "old-name", "old_tw", "")
	require.NoError(t, err)

	var gotToken, gotSince string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Service-Token")
		gotSince = r.URL.Query().Get("since")
		if r.URL.Path != "/api/v1/public/profiles" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"users":[
			{"id":"u1","username":"new-name","twitter_id":"new_tw","profile_picture_url":"https://img/u1.png","updated_at":"2024-03-01T12:00:00Z"},
			{"id":"stranger","username":"nobody","updated_at":"2024-03-01T12:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	worker := NewMemberSyncWorker(db, srv.URL, "sync-token", srv.Client())
	n, err := worker.SyncOnce(testContext(t), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "sync-token", gotToken)
	require.Equal(t, "2024-01-01T00:00:00Z", gotSince)

	m, err := members.GetMember("u1")
	require.NoError(t, err)
	require.Equal(t, "new-name", m.Name)
	require.Equal(t, "new_tw", m.TwitterID)
	require.Equal(t, "https://img/u1.png", m.ImageURL)
	require.Equal(t, models.RoleMember, m.Role)

	_, err = members.GetMember("stranger")
	require.ErrorIs(t, err, services.ErrNotFound)
}

func TestMemberSyncCursorFollowsFeedNotLocalWrites(t *testing.T) {
	db := newTestDB(t)
	members := services.NewMemberService(db)
	require.NoError(t, members.EnsureAdmin("admin", "Admin"))
	_, err := members.Enroll("u1", "ada", "", "")
	require.NoError(t, err)

	var sinces []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sinces = append(sinces, r.URL.Query().Get("since"))
		_, _ = w.Write([]byte(`{"users":[
			{"id":"u1","username":"ada","updated_at":"2024-03-01T12:00:00Z"},
			{"id":"u2","username":"bob","updated_at":"2024-03-01T09:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	worker := NewMemberSyncWorker(db, srv.URL, "t", srv.Client())
	require.Equal(t, time.Unix(0, 0), worker.since())

	_, err = worker.SyncOnce(testContext(t), worker.since())
	require.NoError(t, err)

	// a local write bumps members.updated_at past the feed
	require.NoError(t, members.Promote("admin", "u1"))

	_, err = worker.SyncOnce(testContext(t), worker.since())
	require.NoError(t, err)
	require.Equal(t, []string{"1970-01-01T00:00:00Z", "2024-03-01T12:00:00Z"}, sinces)
}

func TestMemberSyncWorkerSurfacesServiceErrors(t *testing.T) {
	db := newTestDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	worker := NewMemberSyncWorker(db, srv.URL, "t", srv.Client())
	_, err := worker.SyncOnce(testContext(t), time.Time{})
	require.Error(t, err)
}
