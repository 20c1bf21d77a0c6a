package services

import (
	"errors"
	"fmt"
	"log"

	"bounty-ledger/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome is the terminal state a pending application resolves to
type Outcome int

const (
	// OutcomeAwarded mints the reward and records the applicant as a holder.
	OutcomeAwarded Outcome = iota
	// OutcomeRejected is an admin rejection; it temp-bans the applicant.
	OutcomeRejected
	// OutcomeDenied is a negative oracle result; no ban.
	OutcomeDenied
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAwarded:
		return "awarded"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDenied:
		return "denied"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Approve awards pending request requestIndex of bountyID (admin only)
func (s *BountyService) Approve(caller string, bountyID, requestIndex uint) error {
	return s.decide(caller, bountyID, requestIndex, OutcomeAwarded)
}

// Reject drops pending request requestIndex of bountyID and bans the
// applicant from it for BanWindow (admin only)
func (s *BountyService) Reject(caller string, bountyID, requestIndex uint) error {
	return s.decide(caller, bountyID, requestIndex, OutcomeRejected)
}

func (s *BountyService) decide(caller string, bountyID, requestIndex uint, outcome Outcome) error {
	if err := requireAdmin(s.Registry, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.DB.Transaction(func(tx *gorm.DB) error {
		bounty, err := lockBounty(tx, bountyID)
		if err != nil {
			return err
		}
		app, err := pendingApplication(tx, bountyID, requestIndex)
		if err != nil {
			return err
		}
		return s.resolve(tx, bounty, app, outcome, "")
	})
}

func pendingApplication(tx *gorm.DB, bountyID, requestIndex uint) (*models.BountyApplication, error) {
	var app models.BountyApplication
	err := tx.Where("bounty_id = ? AND request_index = ?", bountyID, requestIndex).First(&app).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("request %d of bounty %d", requestIndex, bountyID))
	}
	return &app, nil
}

// resolve is the single place an application leaves the pending set. Manual
// approval, manual rejection and oracle fulfillment all end here. It must run
// inside the caller's transaction with the bounty row locked.
func (s *BountyService) resolve(tx *gorm.DB, bounty *models.Bounty, app *models.BountyApplication, outcome Outcome, requestID string) error {
	if outcome == OutcomeAwarded && !bounty.Infinite && bounty.Quantity == 0 {
		return fmt.Errorf("bounty %d: %w", bounty.ID, ErrOutOfStock)
	}

	if err := tx.Delete(app).Error; err != nil {
		return err
	}

	now := s.Clock.Now()
	event := models.BountyEvent{
		BountyID:     bounty.ID,
		UserID:       app.Applicant,
		RequestIndex: app.RequestIndex,
		RequestID:    requestID,
	}

	switch outcome {
	case OutcomeAwarded:
		holder := models.BountyHolder{
			BountyID:  bounty.ID,
			UserID:    app.Applicant,
			Amount:    bounty.RewardAmount,
			AwardedAt: now,
		}
		if err := tx.Create(&holder).Error; err != nil {
			return err
		}

		if !bounty.Infinite {
			bounty.Quantity--
			if bounty.Quantity == 0 {
				bounty.Active = false
			}
			if err := tx.Model(bounty).Updates(map[string]interface{}{
				"quantity": bounty.Quantity,
				"active":   bounty.Active,
			}).Error; err != nil {
				return err
			}
		}

		if err := s.Registry.Mint(tx, app.Applicant, bounty.RewardAmount); err != nil {
			return fmt.Errorf("mint %d to %s: %w", bounty.RewardAmount, app.Applicant, err)
		}
		event.Kind = models.EventApplicationAwarded
		event.Amount = bounty.RewardAmount
		log.Printf("🏆 [BOUNTY] BountyAwarded nonce=%d to=%s minted=%d remaining=%d active=%t",
			bounty.ID, app.Applicant, bounty.RewardAmount, bounty.Quantity, bounty.Active)

	case OutcomeRejected:
		ban := models.BountyBan{
			BountyID:    bounty.ID,
			UserID:      app.Applicant,
			BannedUntil: now.Add(BanWindow),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bounty_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"banned_until"}),
		}).Create(&ban).Error; err != nil {
			return err
		}
		event.Kind = models.EventApplicationRejected
		log.Printf("🚫 [BOUNTY] BountyRejected nonce=%d user=%s banned_until=%s",
			bounty.ID, app.Applicant, ban.BannedUntil.Format("2006-01-02T15:04:05Z07:00"))

	case OutcomeDenied:
		event.Kind = models.EventApplicationDenied
		log.Printf("❎ [BOUNTY] BountyDenied nonce=%d user=%s request=%s", bounty.ID, app.Applicant, requestID)

	default:
		return errors.New("unknown outcome")
	}

	return s.recordEvent(tx, event)
}
