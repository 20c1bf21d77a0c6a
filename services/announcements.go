package services

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"bounty-ledger/models"

	"gorm.io/gorm"
)

type AnnouncementService struct {
	DB     *gorm.DB
	Access AccessControl

	mu sync.Mutex
}

func NewAnnouncementService(db *gorm.DB, access AccessControl) *AnnouncementService {
	return &AnnouncementService{DB: db, Access: access}
}

// AnnouncementBoard lists every announcement in nonce order. Pinned is the
// pinned nonce, 0 when nothing is pinned.
type AnnouncementBoard struct {
	Nonce  int      `json:"nonce"`
	IDs    []uint   `json:"ids"`
	Titles []string `json:"titles"`
	Bodies []string `json:"bodies"`
	Pinned uint     `json:"pinned"`
}

// AddAnnouncement posts to the board (admin only), pinning it if asked
func (s *AnnouncementService) AddAnnouncement(caller, title, body string, pin bool) (uint, error) {
	if err := requireAdmin(s.Access, caller); err != nil {
		return 0, err
	}
	if strings.TrimSpace(title) == "" {
		return 0, fmt.Errorf("title is required: %w", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ann := models.Announcement{Title: title, Body: body}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ann).Error; err != nil {
			return err
		}
		if !pin {
			return nil
		}
		return pinOnly(tx, ann.ID)
	})
	if err != nil {
		return 0, err
	}

	log.Printf("📢 [BOARD] AnnouncementAdded nonce=%d pinned=%t", ann.ID, pin)
	return ann.ID, nil
}

// PinAnnouncement moves the pin to announcementID (admin only)
func (s *AnnouncementService) PinAnnouncement(caller string, announcementID uint) error {
	if err := requireAdmin(s.Access, caller); err != nil {
		return err
	}
	if announcementID == 0 {
		return fmt.Errorf("cannot set no pinned announcement: %w", ErrInvalidConfig)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var ann models.Announcement
		if err := tx.First(&ann, "id = ?", announcementID).Error; err != nil {
			return notFound(err, fmt.Sprintf("announcement %d", announcementID))
		}
		if ann.Pinned {
			return ErrAlreadyPinned
		}
		return pinOnly(tx, ann.ID)
	})
	if err != nil {
		return err
	}

	log.Printf("📌 [BOARD] AnnouncementPinned nonce=%d by=%s", announcementID, caller)
	return nil
}

func pinOnly(tx *gorm.DB, id uint) error {
	if err := tx.Model(&models.Announcement{}).
		Where("pinned = ? AND id <> ?", true, id).
		Update("pinned", false).Error; err != nil {
		return err
	}
	return tx.Model(&models.Announcement{}).Where("id = ?", id).Update("pinned", true).Error
}

func (s *AnnouncementService) ListAnnouncements() (*AnnouncementBoard, error) {
	var anns []models.Announcement
	if err := s.DB.Order("id ASC").Find(&anns).Error; err != nil {
		return nil, err
	}

	board := &AnnouncementBoard{
		Nonce:  len(anns),
		IDs:    make([]uint, len(anns)),
		Titles: make([]string, len(anns)),
		Bodies: make([]string, len(anns)),
	}
	for i, a := range anns {
		board.IDs[i] = a.ID
		board.Titles[i] = a.Title
		board.Bodies[i] = a.Body
		if a.Pinned {
			board.Pinned = a.ID
		}
	}
	return board, nil
}
