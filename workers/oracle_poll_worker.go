package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"bounty-ledger/services"
)

// OraclePollWorker pulls results for unfulfilled oracle requests and feeds
// them into OnFulfillment. It backs up the push webhook; a request answered
// both ways is still settled once.
type OraclePollWorker struct {
	Bounties  *services.BountyService
	Oracle    services.OracleStatusReader
	Interval  time.Duration
	BatchSize int

	// request id of the last entry polled; PollOnce resumes after it so
	// requests that never fulfill cannot starve newer ones
	cursor string
}

func NewOraclePollWorker(bounties *services.BountyService, oracle services.OracleStatusReader, interval time.Duration) *OraclePollWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &OraclePollWorker{Bounties: bounties, Oracle: oracle, Interval: interval, BatchSize: 50}
}

func (w *OraclePollWorker) Start(ctx context.Context) {
	log.Printf("🔁 Starting Oracle Poll Worker (every %s)…", w.Interval)
	go w.run(ctx)
}

func (w *OraclePollWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Oracle Poll Worker stopped")
			return
		case <-ticker.C:
			n, err := w.PollOnce(ctx)
			if err != nil {
				log.Printf("❌ Oracle poll failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("✅ Settled %d oracle request(s) by polling", n)
			}
		}
	}
}

// PollOnce checks the next batch of outstanding requests and returns how
// many were settled by this call. Batches rotate through every outstanding
// request and wrap around after the last one. Not safe for concurrent use.
func (w *OraclePollWorker) PollOnce(ctx context.Context) (int, error) {
	pending, err := w.Bounties.OutstandingOracleRequestsAfter(w.cursor, w.BatchSize)
	if err != nil {
		return 0, err
	}
	if w.BatchSize <= 0 || len(pending) < w.BatchSize {
		w.cursor = ""
	} else {
		w.cursor = pending[len(pending)-1].RequestID
	}

	settled := 0
	for _, entry := range pending {
		status, err := w.Oracle.Status(ctx, entry.RequestID)
		if err != nil {
			log.Printf("⚠️ [ORACLE] status for %s: %v", entry.RequestID, err)
			continue
		}
		if !status.Fulfilled {
			continue
		}

		err = w.Bounties.OnFulfillment(entry.RequestID, status.Result)
		if errors.Is(err, services.ErrAlreadyFulfilled) {
			continue
		}
		if err != nil {
			log.Printf("❌ [ORACLE] fulfillment for %s: %v", entry.RequestID, err)
			continue
		}
		settled++
	}
	return settled, nil
}
