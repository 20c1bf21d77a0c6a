package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bounty-ledger/models"

	"gorm.io/gorm"
)

// ApplicationReceipt is returned to the applicant. OracleRequestID is set only
// for automatic bounties and can be polled with CheckFulfillment.
type ApplicationReceipt struct {
	BountyID        uint   `json:"bounty_id"`
	RequestIndex    uint   `json:"request_index"`
	OracleRequestID string `json:"oracle_request_id,omitempty"`
}

// SubmitApplication queues applicant for bountyID. For automatic bounties the
// oracle request is submitted in the same call; if the oracle refuses it the
// application is not recorded.
//
// Stock is not reserved here. A finite bounty may collect more pending
// applications than it has quantity left; the surplus fails at award time
// with ErrOutOfStock.
func (s *BountyService) SubmitApplication(ctx context.Context, bountyID uint, applicant string) (*ApplicationReceipt, error) {
	member, err := s.Registry.GetMember(applicant)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	receipt := &ApplicationReceipt{BountyID: bountyID}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		bounty, err := lockBounty(tx, bountyID)
		if err != nil {
			return err
		}
		if err := s.checkEligible(tx, bounty, applicant); err != nil {
			return err
		}

		bounty.LastRequestIndex++
		if err := tx.Model(bounty).UpdateColumn("last_request_index", bounty.LastRequestIndex).Error; err != nil {
			return err
		}

		app := models.BountyApplication{
			BountyID:     bounty.ID,
			RequestIndex: bounty.LastRequestIndex,
			Applicant:    applicant,
			RequestedAt:  s.Clock.Now(),
		}
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		receipt.RequestIndex = app.RequestIndex

		if err := s.recordEvent(tx, models.BountyEvent{
			Kind:         models.EventApplicationSubmitted,
			BountyID:     bounty.ID,
			UserID:       applicant,
			RequestIndex: app.RequestIndex,
		}); err != nil {
			return err
		}

		if bounty.Manual {
			return nil
		}
		// oracle round trip happens under s.mu and the tx; the client's
		// SubmitBudget bounds it
		requestID, err := s.requestVerification(ctx, tx, bounty, &app, member.TwitterID)
		if err != nil {
			return err
		}
		receipt.OracleRequestID = requestID
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("📝 [BOUNTY] BountyApplication nonce=%d by=%s index=%d oracle=%q",
		bountyID, applicant, receipt.RequestIndex, receipt.OracleRequestID)
	return receipt, nil
}

// checkEligible applies the apply preconditions in order: active, not
// pending, not a holder, not temp-banned.
func (s *BountyService) checkEligible(tx *gorm.DB, bounty *models.Bounty, applicant string) error {
	if !bounty.Active {
		return ErrBountyInactive
	}

	var count int64
	if err := tx.Model(&models.BountyApplication{}).
		Where("bounty_id = ? AND applicant = ?", bounty.ID, applicant).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyPending
	}

	if err := tx.Model(&models.BountyHolder{}).
		Where("bounty_id = ? AND user_id = ?", bounty.ID, applicant).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrAlreadyAwarded
	}

	var ban models.BountyBan
	err := tx.Where("bounty_id = ? AND user_id = ?", bounty.ID, applicant).First(&ban).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err == nil && s.Clock.Now().Before(ban.BannedUntil) {
		return fmt.Errorf("banned until %s: %w", ban.BannedUntil.UTC().Format("2006-01-02T15:04:05Z"), ErrTempBanned)
	}
	return nil
}

// ListPending returns the pending applications for bountyID in request order
func (s *BountyService) ListPending(bountyID uint) ([]models.BountyApplication, error) {
	var count int64
	if err := s.DB.Model(&models.Bounty{}).Where("id = ?", bountyID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("bounty %d: %w", bountyID, ErrNotFound)
	}

	apps := []models.BountyApplication{}
	err := s.DB.Where("bounty_id = ?", bountyID).Order("request_index ASC").Find(&apps).Error
	return apps, err
}
