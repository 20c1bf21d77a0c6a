package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"bounty-ledger/models"

	"gorm.io/gorm"
)

type MemberService struct {
	DB *gorm.DB
}

func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{DB: db}
}

// MemberListing is the parallel-sequence projection of every member, ordered
// by enrollment.
type MemberListing struct {
	Nonce     int      `json:"nonce"`
	IDs       []string `json:"ids"`
	Names     []string `json:"names"`
	Roles     []string `json:"roles"`
	ImageURLs []string `json:"image_urls"`
}

// Enroll self-registers a member with no balance
func (s *MemberService) Enroll(id, name, twitterID, imageURL string) (*models.Member, error) {
	return s.enroll(id, name, twitterID, imageURL, models.RoleMember)
}

// EnrollAdmin registers a new administrator (admin only)
func (s *MemberService) EnrollAdmin(caller, id, name, twitterID, imageURL string) (*models.Member, error) {
	if err := requireAdmin(s, caller); err != nil {
		return nil, err
	}
	return s.enroll(id, name, twitterID, imageURL, models.RoleAdmin)
}

func (s *MemberService) enroll(id, name, twitterID, imageURL, role string) (*models.Member, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("id and name are required: %w", ErrInvalidConfig)
	}

	member := models.Member{
		ID:        id,
		Name:      name,
		TwitterID: twitterID,
		ImageURL:  imageURL,
		Role:      role,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Member{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyEnrolled
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("👤 [REGISTRY] UserEnrolled id=%s role=%s", id, role)
	return &member, nil
}

// EnsureAdmin bootstraps the first administrator (idempotent)
func (s *MemberService) EnsureAdmin(id, name string) error {
	var member models.Member
	err := s.DB.Where("id = ?", id).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_, err = s.enroll(id, name, "", "", models.RoleAdmin)
		return err
	}
	if err != nil {
		return err
	}
	if member.Role == models.RoleAdmin {
		return nil
	}
	return s.DB.Model(&member).Update("role", models.RoleAdmin).Error
}

// Promote makes an existing member an administrator (admin only)
func (s *MemberService) Promote(caller, userID string) error {
	if err := requireAdmin(s, caller); err != nil {
		return err
	}
	res := s.DB.Model(&models.Member{}).Where("id = ?", userID).Update("role", models.RoleAdmin)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	log.Printf("👤 [REGISTRY] UserPromoted id=%s by=%s", userID, caller)
	return nil
}

// SetTwitterID changes the twitter id the oracle verifies against
func (s *MemberService) SetTwitterID(userID, twitterID string) error {
	if strings.TrimSpace(twitterID) == "" {
		return fmt.Errorf("must set twitter id to non-null value: %w", ErrInvalidConfig)
	}
	res := s.DB.Model(&models.Member{}).Where("id = ?", userID).Update("twitter_id", twitterID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *MemberService) GetMember(id string) (*models.Member, error) {
	var member models.Member
	if err := s.DB.Where("id = ?", id).First(&member).Error; err != nil {
		return nil, notFound(err, "member "+id)
	}
	return &member, nil
}

func (s *MemberService) ListMembers() (*MemberListing, error) {
	var members []models.Member
	if err := s.DB.Order("created_at ASC, id ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	out := &MemberListing{
		Nonce:     len(members),
		IDs:       make([]string, len(members)),
		Names:     make([]string, len(members)),
		Roles:     make([]string, len(members)),
		ImageURLs: make([]string, len(members)),
	}
	for i, m := range members {
		out.IDs[i] = m.ID
		out.Names[i] = m.Name
		out.Roles[i] = m.Role
		out.ImageURLs[i] = m.ImageURL
	}
	return out, nil
}

// BountiesHeld lists the bounty nonces awarded to userID
func (s *MemberService) BountiesHeld(userID string) ([]uint, error) {
	ids := []uint{}
	err := s.DB.Model(&models.BountyHolder{}).
		Where("user_id = ?", userID).
		Order("bounty_id ASC").
		Pluck("bounty_id", &ids).Error
	return ids, err
}

// --- AccessControl / CreditLedger ---

func (s *MemberService) IsAdmin(userID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.Member{}).
		Where("id = ? AND role = ?", userID, models.RoleAdmin).
		Count(&count).Error
	return count > 0, err
}

func (s *MemberService) BalanceOf(userID string) (int64, error) {
	member, err := s.GetMember(userID)
	if err != nil {
		return 0, err
	}
	return member.Balance, nil
}

// Mint credits amount to userID on tx
func (s *MemberService) Mint(tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("mint amount %d: %w", amount, ErrInvalidConfig)
	}
	res := tx.Model(&models.Member{}).
		Where("id = ?", userID).
		UpdateColumn("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	return nil
}

// Spend debits amount from userID on tx; the balance never goes negative.
func (s *MemberService) Spend(tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("spend amount %d: %w", amount, ErrInvalidConfig)
	}
	res := tx.Model(&models.Member{}).
		Where("id = ? AND balance >= ?", userID, amount).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Member{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("member %s: %w", userID, ErrNotFound)
	}
	return ErrInsufficientBalance
}
