package services

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"bounty-ledger/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Ledger is the access check plus balance store the catalog needs
type Ledger interface {
	AccessControl
	CreditLedger
}

type ItemService struct {
	DB     *gorm.DB
	Ledger Ledger
	Clock  clockwork.Clock

	mu sync.Mutex
}

func NewItemService(db *gorm.DB, ledger Ledger, clock clockwork.Clock) *ItemService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ItemService{DB: db, Ledger: ledger, Clock: clock}
}

type AddItemInput struct {
	Title    string `json:"title" form:"title"`
	Body     string `json:"body" form:"body"`
	ImageURL string `json:"image_url" form:"image_url"`
	Cost     int64  `json:"cost" form:"cost"`
	Infinite bool   `json:"infinite" form:"infinite"`
	Quantity uint   `json:"quantity" form:"quantity"`
}

// ItemListing is the parallel-sequence projection of the catalog
type ItemListing struct {
	Nonce      int      `json:"nonce"`
	IDs        []uint   `json:"ids"`
	Titles     []string `json:"titles"`
	Bodies     []string `json:"bodies"`
	ImageURLs  []string `json:"image_urls"`
	Costs      []int64  `json:"costs"`
	Infinite   []bool   `json:"infinite"`
	Quantities []uint   `json:"quantities"`
	Active     []bool   `json:"active"`
}

// AddItem lists a new purchasable item (admin only)
func (s *ItemService) AddItem(caller string, in AddItemInput) (uint, error) {
	if err := requireAdmin(s.Ledger, caller); err != nil {
		return 0, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return 0, fmt.Errorf("title is required: %w", ErrInvalidConfig)
	}
	if in.Cost <= 0 {
		return 0, fmt.Errorf("cost must be positive: %w", ErrInvalidConfig)
	}
	if !in.Infinite && in.Quantity == 0 {
		return 0, fmt.Errorf("finite item requires a quantity: %w", ErrInvalidConfig)
	}

	item := models.Item{
		Title:    in.Title,
		Body:     in.Body,
		ImageURL: in.ImageURL,
		Cost:     in.Cost,
		Infinite: in.Infinite,
		Quantity: in.Quantity,
		Active:   true,
	}
	if item.Infinite {
		item.Quantity = 0
	}
	if err := s.DB.Create(&item).Error; err != nil {
		return 0, err
	}

	log.Printf("🛒 [ITEMS] ItemAdded nonce=%d cost=%d", item.ID, item.Cost)
	return item.ID, nil
}

// DelistItem deactivates an item (admin only)
func (s *ItemService) DelistItem(caller string, itemID uint) error {
	if err := requireAdmin(s.Ledger, caller); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.DB.Model(&models.Item{}).Where("id = ?", itemID).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	log.Printf("🛒 [ITEMS] ItemDelisted nonce=%d by=%s", itemID, caller)
	return nil
}

// BuyItem spends the item's cost from buyer's balance and takes one unit of
// stock. Nothing changes if any check fails.
func (s *ItemService) BuyItem(buyer string, itemID uint) (*models.ItemPurchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purchase models.ItemPurchase
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := forUpdate(tx).First(&item, "id = ?", itemID).Error; err != nil {
			return notFound(err, fmt.Sprintf("item %d", itemID))
		}
		if !item.Active {
			return ErrItemUnavailable
		}
		if !item.Infinite && item.Quantity == 0 {
			return fmt.Errorf("item %d: %w", itemID, ErrOutOfStock)
		}

		if err := s.Ledger.Spend(tx, buyer, item.Cost); err != nil {
			return err
		}

		if !item.Infinite {
			item.Quantity--
			if item.Quantity == 0 {
				item.Active = false
			}
			if err := tx.Model(&item).Updates(map[string]interface{}{
				"quantity": item.Quantity,
				"active":   item.Active,
			}).Error; err != nil {
				return err
			}
		}

		purchase = models.ItemPurchase{
			ItemID:      item.ID,
			BuyerID:     buyer,
			Cost:        item.Cost,
			PurchasedAt: s.Clock.Now(),
		}
		return tx.Create(&purchase).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("🛒 [ITEMS] ItemPurchased nonce=%d buyer=%s cost=%d", itemID, buyer, purchase.Cost)
	return &purchase, nil
}

func (s *ItemService) GetItem(itemID uint) (*models.Item, error) {
	var item models.Item
	if err := s.DB.First(&item, "id = ?", itemID).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("item %d", itemID))
	}
	return &item, nil
}

func (s *ItemService) ListItems() (*ItemListing, error) {
	var items []models.Item
	if err := s.DB.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	n := len(items)
	out := &ItemListing{
		Nonce:      n,
		IDs:        make([]uint, n),
		Titles:     make([]string, n),
		Bodies:     make([]string, n),
		ImageURLs:  make([]string, n),
		Costs:      make([]int64, n),
		Infinite:   make([]bool, n),
		Quantities: make([]uint, n),
		Active:     make([]bool, n),
	}
	for i, it := range items {
		out.IDs[i] = it.ID
		out.Titles[i] = it.Title
		out.Bodies[i] = it.Body
		out.ImageURLs[i] = it.ImageURL
		out.Costs[i] = it.Cost
		out.Infinite[i] = it.Infinite
		out.Quantities[i] = it.Quantity
		out.Active[i] = it.Active
	}
	return out, nil
}
