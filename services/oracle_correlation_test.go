package services

import (
	"sync"
	"testing"
	"time"

	"bounty-ledger/models"

	"github.com/stretchr/testify/require"
)

func TestOracleFulfillmentAwardsAndDenies(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1", "u2")
	id := f.autoBounty(t, 75, 0)

	r1, err := f.bounties.SubmitApplication(testContext(t), id, "u1")
	require.NoError(t, err)
	r2, err := f.bounties.SubmitApplication(testContext(t), id, "u2")
	require.NoError(t, err)

	require.NoError(t, f.bounties.OnFulfillment(r1.OracleRequestID, true))
	require.NoError(t, f.bounties.OnFulfillment(r2.OracleRequestID, false))

	require.Equal(t, int64(75), f.balance(t, "u1"))
	require.Equal(t, int64(0), f.balance(t, "u2"))

	view, err := f.bounties.GetBounty(id)
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, view.Holders)

	pending, err := f.bounties.ListPending(id)
	require.NoError(t, err)
	require.Empty(t, pending)

	// denial is not punitive: no ban row, immediate reapply works
	var bans int64
	require.NoError(t, f.db.Model(&models.BountyBan{}).Count(&bans).Error)
	require.Zero(t, bans)
	_, err = f.bounties.SubmitApplication(testContext(t), id, "u2")
	require.NoError(t, err)

	entry, err := f.bounties.GetOracleRequest(r2.OracleRequestID)
	require.NoError(t, err)
	require.True(t, entry.Fulfilled)
	require.False(t, entry.Result)
	require.NotNil(t, entry.FulfilledAt)

	done, err := f.bounties.CheckFulfillment(r1.OracleRequestID)
	require.NoError(t, err)
	require.True(t, done)

	var denied int64
	require.NoError(t, f.db.Model(&models.BountyEvent{}).Where("kind = ?", models.EventApplicationDenied).Count(&denied).Error)
	require.Equal(t, int64(1), denied)
}

func TestDuplicateFulfillmentMintsOnce(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1")
	id := f.autoBounty(t, 40, 0)
	r, err := f.bounties.SubmitApplication(testContext(t), id, "u1")
	require.NoError(t, err)

	require.NoError(t, f.bounties.OnFulfillment(r.OracleRequestID, true))
	require.ErrorIs(t, f.bounties.OnFulfillment(r.OracleRequestID, true), ErrAlreadyFulfilled)
	require.ErrorIs(t, f.bounties.OnFulfillment(r.OracleRequestID, false), ErrAlreadyFulfilled)

	require.Equal(t, int64(40), f.balance(t, "u1"))
	entry, err := f.bounties.GetOracleRequest(r.OracleRequestID)
	require.NoError(t, err)
	require.True(t, entry.Result, "first delivery wins")
}

func TestConcurrentFulfillmentMintsOnce(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1")
	id := f.autoBounty(t, 40, 0)
	r, err := f.bounties.SubmitApplication(testContext(t), id, "u1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.bounties.OnFulfillment(r.OracleRequestID, true)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, ErrAlreadyFulfilled)
	}
	require.Equal(t, 1, ok)
	require.Equal(t, int64(40), f.balance(t, "u1"))
}

func TestFulfillmentUnknownRequest(t *testing.T) {
	f := newFixture(t)
	require.ErrorIs(t, f.bounties.OnFulfillment("nope", true), ErrNotFound)

	_, err := f.bounties.CheckFulfillment("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFulfillmentOutOfStockDropsApplication(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1", "u2")
	id := f.autoBounty(t, 10, 1)

	r1, err := f.bounties.SubmitApplication(testContext(t), id, "u1")
	require.NoError(t, err)
	r2, err := f.bounties.SubmitApplication(testContext(t), id, "u2")
	require.NoError(t, err)

	require.NoError(t, f.bounties.OnFulfillment(r1.OracleRequestID, true))
	require.NoError(t, f.bounties.OnFulfillment(r2.OracleRequestID, true))

	require.Equal(t, int64(10), f.balance(t, "u1"))
	require.Equal(t, int64(0), f.balance(t, "u2"))

	pending, err := f.bounties.ListPending(id)
	require.NoError(t, err)
	require.Empty(t, pending)

	done, err := f.bounties.CheckFulfillment(r2.OracleRequestID)
	require.NoError(t, err)
	require.True(t, done)
}

func TestFulfillmentAfterAdminDecision(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1")
	id := f.autoBounty(t, 10, 0)
	r, err := f.bounties.SubmitApplication(testContext(t), id, "u1")
	require.NoError(t, err)

	require.NoError(t, f.bounties.Approve(admin, id, r.RequestIndex))
	require.NoError(t, f.bounties.OnFulfillment(r.OracleRequestID, true))

	require.Equal(t, int64(10), f.balance(t, "u1"), "late oracle result does not mint again")
}

func TestOutstandingAndStaleOracleRequests(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1", "u2", "u3")
	id := f.autoBounty(t, 10, 0)

	r1, err := f.bounties.SubmitApplication(testContext(t), id, "u1")
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)
	_, err = f.bounties.SubmitApplication(testContext(t), id, "u2")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	r3, err := f.bounties.SubmitApplication(testContext(t), id, "u3")
	require.NoError(t, err)
	require.NoError(t, f.bounties.OnFulfillment(r3.OracleRequestID, false))

	all, err := f.bounties.OutstandingOracleRequests(time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, r1.OracleRequestID, all[0].RequestID)

	limited, err := f.bounties.OutstandingOracleRequests(time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	// now = t0+3h; only the first request is older than 150 minutes
	require.Equal(t, 1, ReportStaleOracleRequests(f.bounties, 150*time.Minute))
	require.Equal(t, 0, ReportStaleOracleRequests(f.bounties, 24*time.Hour))

	// reporting never times anything out
	pending, err := f.bounties.ListPending(id)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestOutstandingOracleRequestsAfterPagesByID(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, "u1", "u2", "u3", "u4")
	id := f.autoBounty(t, 10, 0)

	var reqs []string
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		r, err := f.bounties.SubmitApplication(testContext(t), id, u)
		require.NoError(t, err)
		reqs = append(reqs, r.OracleRequestID)
	}
	require.NoError(t, f.bounties.OnFulfillment(reqs[1], false))

	first, err := f.bounties.OutstandingOracleRequestsAfter("", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, reqs[0], first[0].RequestID)
	require.Equal(t, reqs[2], first[1].RequestID)

	rest, err := f.bounties.OutstandingOracleRequestsAfter(first[1].RequestID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, reqs[3], rest[0].RequestID)
}
