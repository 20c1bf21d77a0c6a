package services

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"bounty-ledger/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BanWindow is how long an admin rejection blocks re-application
const BanWindow = 24 * time.Hour

// MemberDirectory resolves applicants to registry entries
type MemberDirectory interface {
	GetMember(id string) (*models.Member, error)
}

// Registry is everything the bounty engine needs from the user registry
type Registry interface {
	AccessControl
	CreditLedger
	MemberDirectory
}

// BountyService owns bounties, pending applications, bans and oracle
// correlation entries. Every mutation runs under mu and inside one DB
// transaction, so each call observes and leaves a consistent state.
type BountyService struct {
	DB          *gorm.DB
	Registry    Registry
	Oracle      OracleClient
	Clock       clockwork.Clock
	CallbackURL string // handed to the oracle with each request

	mu sync.Mutex
}

func NewBountyService(db *gorm.DB, registry Registry, oracle OracleClient, clock clockwork.Clock) *BountyService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BountyService{DB: db, Registry: registry, Oracle: oracle, Clock: clock}
}

// CreateBountyInput carries the admin-supplied bounty definition
type CreateBountyInput struct {
	Title        string `json:"title" form:"title"`
	Description  string `json:"description" form:"description"`
	MediaRef     string `json:"media_ref" form:"media_ref"`
	RewardAmount int64  `json:"reward_amount" form:"reward_amount"`
	Infinite     bool   `json:"infinite" form:"infinite"`
	Quantity     uint   `json:"quantity" form:"quantity"`
	Manual       bool   `json:"manual" form:"manual"`
	ExternalRef  string `json:"external_ref" form:"external_ref"`
}

func (in CreateBountyInput) validate() error {
	if in.RewardAmount <= 0 {
		return fmt.Errorf("reward amount must be positive: %w", ErrInvalidConfig)
	}
	if !in.Manual && strings.TrimSpace(in.ExternalRef) == "" {
		return fmt.Errorf("automatic bounty requires an external ref: %w", ErrInvalidConfig)
	}
	if !in.Infinite && in.Quantity == 0 {
		return fmt.Errorf("finite bounty requires a quantity: %w", ErrInvalidConfig)
	}
	return nil
}

// BountyView is a single bounty plus its holders in award order
type BountyView struct {
	models.Bounty
	Holders []string `json:"holders"`
}

// BountyListing is the parallel-sequence projection of every bounty, indexed
// by nonce order.
type BountyListing struct {
	Nonce        int      `json:"nonce"`
	IDs          []uint   `json:"ids"`
	Titles       []string `json:"titles"`
	Descriptions []string `json:"descriptions"`
	MediaRefs    []string `json:"media_refs"`
	Rewards      []int64  `json:"rewards"`
	Infinite     []bool   `json:"infinite"`
	Quantities   []uint   `json:"quantities"`
	Active       []bool   `json:"active"`
	Manual       []bool   `json:"manual"`
	ExternalRefs []string `json:"external_refs"`
}

// CreateBounty lists a new active bounty (admin only) and returns its nonce
func (s *BountyService) CreateBounty(caller string, in CreateBountyInput) (uint, error) {
	if err := requireAdmin(s.Registry, caller); err != nil {
		return 0, err
	}
	if err := in.validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bounty := models.Bounty{
		Title:        in.Title,
		Description:  in.Description,
		MediaRef:     in.MediaRef,
		RewardAmount: in.RewardAmount,
		Infinite:     in.Infinite,
		Quantity:     in.Quantity,
		Active:       true,
		Manual:       in.Manual,
		ExternalRef:  strings.TrimSpace(in.ExternalRef),
	}
	if bounty.Infinite {
		bounty.Quantity = 0
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&bounty).Error; err != nil {
			return err
		}
		return s.recordEvent(tx, models.BountyEvent{
			Kind:     models.EventBountyCreated,
			BountyID: bounty.ID,
			UserID:   caller,
			Amount:   bounty.RewardAmount,
		})
	})
	if err != nil {
		log.Printf("DB Error creating bounty: %v", err)
		return 0, err
	}

	log.Printf("🎯 [BOUNTY] BountyAdded nonce=%d manual=%t infinite=%t qty=%d", bounty.ID, bounty.Manual, bounty.Infinite, bounty.Quantity)
	return bounty.ID, nil
}

// Delist deactivates a bounty for good (admin only). Delisting an inactive
// bounty is a no-op.
func (s *BountyService) Delist(caller string, bountyID uint) error {
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
		if !bounty.Active {
			return nil
		}
		if err := tx.Model(bounty).Update("active", false).Error; err != nil {
			return err
		}
		log.Printf("🛑 [BOUNTY] BountyDelisted nonce=%d by=%s", bountyID, caller)
		return s.recordEvent(tx, models.BountyEvent{
			Kind:     models.EventBountyDelisted,
			BountyID: bountyID,
			UserID:   caller,
		})
	})
}

// GetBounty returns a bounty with its holders
func (s *BountyService) GetBounty(bountyID uint) (*BountyView, error) {
	var bounty models.Bounty
	if err := s.DB.First(&bounty, "id = ?", bountyID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("bounty %d", bountyID))
	}

	holders := []string{}
	if err := s.DB.Model(&models.BountyHolder{}).
		Where("bounty_id = ?", bountyID).
		Order("id ASC").
		Pluck("user_id", &holders).Error; err != nil {
		return nil, err
	}
	return &BountyView{Bounty: bounty, Holders: holders}, nil
}

// ListBounties returns every bounty as parallel sequences in nonce order
func (s *BountyService) ListBounties() (*BountyListing, error) {
	var bounties []models.Bounty
	if err := s.DB.Order("id ASC").Find(&bounties).Error; err != nil {
		return nil, err
	}

	n := len(bounties)
	out := &BountyListing{
		Nonce:        n,
		IDs:          make([]uint, n),
		Titles:       make([]string, n),
		Descriptions: make([]string, n),
		MediaRefs:    make([]string, n),
		Rewards:      make([]int64, n),
		Infinite:     make([]bool, n),
		Quantities:   make([]uint, n),
		Active:       make([]bool, n),
		Manual:       make([]bool, n),
		ExternalRefs: make([]string, n),
	}
	for i, b := range bounties {
		out.IDs[i] = b.ID
		out.Titles[i] = b.Title
		out.Descriptions[i] = b.Description
		out.MediaRefs[i] = b.MediaRef
		out.Rewards[i] = b.RewardAmount
		out.Infinite[i] = b.Infinite
		out.Quantities[i] = b.Quantity
		out.Active[i] = b.Active
		out.Manual[i] = b.Manual
		out.ExternalRefs[i] = b.ExternalRef
	}
	return out, nil
}

// HasBounty reports whether userID was ever awarded bountyID
func (s *BountyService) HasBounty(bountyID uint, userID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.BountyHolder{}).
		Where("bounty_id = ? AND user_id = ?", bountyID, userID).
		Count(&count).Error
	return count > 0, err
}

// forUpdate adds a row lock where the dialect supports one. SQLite
// serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func lockBounty(tx *gorm.DB, bountyID uint) (*models.Bounty, error) {
	var bounty models.Bounty
	if err := forUpdate(tx).First(&bounty, "id = ?", bountyID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("bounty %d", bountyID))
	}
	return &bounty, nil
}
