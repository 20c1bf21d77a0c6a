package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bounty-ledger/models"

	"gorm.io/gorm"
)

// requestVerification submits the oracle request for a freshly queued
// application and stores the correlation entry on tx. Runs inside
// SubmitApplication's transaction.
func (s *BountyService) requestVerification(ctx context.Context, tx *gorm.DB, bounty *models.Bounty, app *models.BountyApplication, twitterID string) (string, error) {
	if s.Oracle == nil {
		return "", errors.New("oracle client not configured")
	}

	requestID, err := s.Oracle.Submit(ctx, VerificationRequest{
		BountyID:     bounty.ID,
		RequestIndex: app.RequestIndex,
		Applicant:    app.Applicant,
		TwitterID:    twitterID,
		ExternalRef:  bounty.ExternalRef,
		CallbackURL:  s.CallbackURL,
	})
	if err != nil {
		return "", fmt.Errorf("oracle submit: %w", err)
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return "", errors.New("oracle submit: empty request id")
	}

	entry := models.OracleRequest{
		RequestID:    requestID,
		BountyID:     bounty.ID,
		Applicant:    app.Applicant,
		RequestIndex: app.RequestIndex,
		ExternalRef:  bounty.ExternalRef,
		CreatedAt:    s.Clock.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return "", fmt.Errorf("store oracle request %s: %w", requestID, err)
	}
	return requestID, nil
}

// OnFulfillment consumes an oracle callback. The first delivery for a request
// id resolves the matching application (award on true, ban-free removal on
// false); later deliveries return ErrAlreadyFulfilled and change nothing.
func (s *BountyService) OnFulfillment(requestID string, result bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.OracleRequest
		if err := forUpdate(tx).First(&entry, "request_id = ?", requestID).Error; err != nil {
			return notFound(err, "oracle request "+requestID)
		}
		if entry.Fulfilled {
			return fmt.Errorf("oracle request %s: %w", requestID, ErrAlreadyFulfilled)
		}

		now := s.Clock.Now()
		if err := tx.Model(&entry).Updates(map[string]interface{}{
			"fulfilled":    true,
			"result":       result,
			"fulfilled_at": now,
		}).Error; err != nil {
			return err
		}

		bounty, err := lockBounty(tx, entry.BountyID)
		if err != nil {
			return err
		}
		app, err := pendingApplication(tx, entry.BountyID, entry.RequestIndex)
		if errors.Is(err, ErrNotFound) {
			// Resolved some other way (e.g. an admin decided first).
			log.Printf("⚠️ [ORACLE] request %s fulfilled but request %d of bounty %d is no longer pending",
				requestID, entry.RequestIndex, entry.BountyID)
			return nil
		}
		if err != nil {
			return err
		}

		outcome := OutcomeDenied
		if result {
			outcome = OutcomeAwarded
		}
		err = s.resolve(tx, bounty, app, outcome, requestID)
		if errors.Is(err, ErrOutOfStock) {
			log.Printf("⚠️ [ORACLE] request %s verified but bounty %d is out of stock; dropping application", requestID, bounty.ID)
			return s.resolve(tx, bounty, app, OutcomeDenied, requestID)
		}
		return err
	})
}

// CheckFulfillment reports whether the oracle has answered requestID.
// "Not yet" and "never" look the same from here.
func (s *BountyService) CheckFulfillment(requestID string) (bool, error) {
	entry, err := s.GetOracleRequest(requestID)
	if err != nil {
		return false, err
	}
	return entry.Fulfilled, nil
}

func (s *BountyService) GetOracleRequest(requestID string) (*models.OracleRequest, error) {
	var entry models.OracleRequest
	if err := s.DB.First(&entry, "request_id = ?", requestID).Error; err != nil {
		return nil, notFound(err, "oracle request "+requestID)
	}
	return &entry, nil
}

// OutstandingOracleRequests lists unfulfilled correlation entries created
// before cutoff, oldest first. A zero cutoff means all of them.
func (s *BountyService) OutstandingOracleRequests(cutoff time.Time, limit int) ([]models.OracleRequest, error) {
	q := s.DB.Where("fulfilled = ?", false)
	if !cutoff.IsZero() {
		q = q.Where("created_at < ?", cutoff)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.OracleRequest
	err := q.Order("created_at ASC").Find(&entries).Error
	return entries, err
}

// OutstandingOracleRequestsAfter pages unfulfilled entries by request id,
// starting after afterID. An empty afterID starts from the beginning.
func (s *BountyService) OutstandingOracleRequestsAfter(afterID string, limit int) ([]models.OracleRequest, error) {
	q := s.DB.Where("fulfilled = ?", false)
	if afterID != "" {
		q = q.Where("request_id > ?", afterID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.OracleRequest
	err := q.Order("request_id ASC").Find(&entries).Error
	return entries, err
}
