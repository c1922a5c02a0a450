package messaging

import (
	"time"

	"market-ledger/internal/models"
)

// Routing keys used on the ledger exchange
const (
	RoutingKeyItemSold    = "item.sold"
	RoutingKeyBrandPurged = "brand.purged"
)

// ItemSoldEvent is published after a purchase commits
type ItemSoldEvent struct {
	EventID  string      `json:"event_id"`
	SaleID   string      `json:"sale_id"`
	Kind     models.Kind `json:"kind"`
	ItemID   int64       `json:"item_id"`
	BuyerID  int64       `json:"buyer_id"`
	SellerID int64       `json:"seller_id"`
	Price    string      `json:"price"`
	SoldAt   string      `json:"sold_at"`
}

// BrandPurgedEvent is published after a brand purge removed at least one item
type BrandPurgedEvent struct {
	EventID   string `json:"event_id"`
	Brand     string `json:"brand"`
	Cars      int    `json:"cars"`
	Bikes     int    `json:"bikes"`
	Timestamp string `json:"timestamp"`
}

func newItemSoldEvent(eventID string, sale *models.Sale) *ItemSoldEvent {
	return &ItemSoldEvent{
		EventID:  eventID,
		SaleID:   sale.ID,
		Kind:     sale.Kind,
		ItemID:   sale.ItemID,
		BuyerID:  sale.BuyerID,
		SellerID: sale.SellerID,
		Price:    sale.Price.String(),
		SoldAt:   sale.SoldAt.UTC().Format(time.RFC3339),
	}
}

func newBrandPurgedEvent(eventID, brand string, removed map[models.Kind]int, at time.Time) *BrandPurgedEvent {
	return &BrandPurgedEvent{
		EventID:   eventID,
		Brand:     brand,
		Cars:      removed[models.KindCar],
		Bikes:     removed[models.KindBike],
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}
