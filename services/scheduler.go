// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler runs the periodic jobs: the event outbox relay and the
// stale oracle request report. Stale entries are only reported, never timed
// out; a late fulfillment still resolves them.
func StartScheduler(ctx context.Context, relay *EventRelay, bounties *BountyService, relayEvery, staleAfter time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if relay != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(relayEvery),
			gocron.NewTask(func() {
				n, err := relay.RelayPending(ctx)
				if err != nil {
					log.Printf("[Scheduler] event relay error after %d event(s): %v", n, err)
					return
				}
				if n > 0 {
					log.Printf("📤 [Scheduler] relayed %d event(s)", n)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, err
		}
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			ReportStaleOracleRequests(bounties, staleAfter)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

// ReportStaleOracleRequests logs correlation entries older than staleAfter
// that never got a fulfillment and returns how many there are.
func ReportStaleOracleRequests(bounties *BountyService, staleAfter time.Duration) int {
	cutoff := bounties.Clock.Now().Add(-staleAfter)
	stale, err := bounties.OutstandingOracleRequests(cutoff, 0)
	if err != nil {
		log.Printf("[Scheduler] DB error: %v", err)
		return 0
	}
	for _, e := range stale {
		log.Printf("⏳ [ORACLE] request %s for bounty %d (index %d, applicant %s) unfulfilled since %s",
			e.RequestID, e.BountyID, e.RequestIndex, e.Applicant, e.CreatedAt.UTC().Format(time.RFC3339))
	}
	return len(stale)
}
