package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale is the retained record of a completed purchase.
// Snapshot is the item as it was before ownership changed, owner fields included.
type Sale struct {
	ID       string          `json:"id" db:"id"`
	Kind     Kind            `json:"kind" db:"item_kind"`
	ItemID   int64           `json:"item_id" db:"item_id"`
	BuyerID  int64           `json:"buyer_id" db:"buyer_id"`
	SellerID int64           `json:"seller_id" db:"seller_id"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Snapshot Item            `json:"snapshot"`
	SoldAt   time.Time       `json:"sold_at" db:"sold_at"`
}

// NewSale records the sale of snapshot to the buyer
func NewSale(snapshot Item, buyerID int64) *Sale {
	base := snapshot.Base()
	return &Sale{
		ID:       uuid.New().String(),
		Kind:     snapshot.Kind(),
		ItemID:   base.ID,
		BuyerID:  buyerID,
		SellerID: base.OwnerID,
		Price:    base.Price,
		Snapshot: snapshot,
		SoldAt:   time.Now().UTC(),
	}
}
