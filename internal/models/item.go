package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a sellable listing. The set of implementations is closed: *Car and *Bike.
type Item interface {
	Kind() Kind
	Base() *Listing
	Describe() string
	Record() []string
	Clone() Item
	sealed()
}

// Listing holds the fields shared by every item variant
type Listing struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Brand     string          `json:"brand" db:"brand"`
	Auction   bool            `json:"auction" db:"auction"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Weight    decimal.Decimal `json:"weight" db:"weight"`
	OwnerID   int64           `json:"owner_id" db:"owner_id"`
	Owner     *Profile        `json:"owner,omitempty"`
	Available bool            `json:"available" db:"available"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// NewListing creates the shared part of an item owned by the referenced profile
func NewListing(name, brand string, auction bool, price, weight decimal.Decimal, owner ProfileRef, available bool) Listing {
	now := time.Now()
	return Listing{
		Name:      name,
		Brand:     brand,
		Auction:   auction,
		Price:     price,
		Weight:    weight,
		OwnerID:   owner.ID,
		Available: available,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (l *Listing) validate() error {
	return firstError(
		requireText("name", l.Name),
		requireText("brand", l.Brand),
		requireNonNegativeAmount("price", l.Price),
		requireNonNegativeAmount("weight", l.Weight),
	)
}

// clone copies the listing, including an independent copy of the owner
func (l Listing) clone() Listing {
	l.Owner = l.Owner.Clone()
	return l
}

// SetOwner reassigns the listing to the given profile
func (l *Listing) SetOwner(p *Profile) {
	l.OwnerID = p.ID
	l.Owner = p
	l.UpdatedAt = time.Now()
}

// MarkSold flips the availability flag; the transition is terminal
func (l *Listing) MarkSold() {
	l.Available = false
	l.UpdatedAt = time.Now()
}

func (l *Listing) ownerLabel() string {
	if l.Owner != nil {
		return l.Owner.Nick
	}
	return fmt.Sprintf("#%d", l.OwnerID)
}

func (l *Listing) describe(b *strings.Builder) {
	fmt.Fprintf(b, "Name of item: %s\n", l.Name)
	fmt.Fprintf(b, "Brand: %s\n", l.Brand)
	fmt.Fprintf(b, "Auction: %t\n", l.Auction)
	fmt.Fprintf(b, "Price: %s\n", l.Price.StringFixed(2))
	fmt.Fprintf(b, "Weight: %s kg\n", l.Weight.String())
	fmt.Fprintf(b, "Owner: %s\n", l.ownerLabel())
}

func (l *Listing) record() []string {
	return []string{
		l.Name,
		l.Brand,
		FormatFlag(l.Auction),
		l.Price.String(),
		l.Weight.String(),
		strconv.FormatInt(l.OwnerID, 10),
		FormatFlag(l.Available),
	}
}

// FormatFlag renders a boolean as the 0/1 flag used in record files
func FormatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseFlag parses a 0/1 flag
func ParseFlag(field, raw string) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, &ValidationError{Field: field, Message: fmt.Sprintf("%s must be 0 or 1", field), Value: raw}
}

type itemEnvelope struct {
	Kind Kind            `json:"kind"`
	Item json.RawMessage `json:"item"`
}

// EncodeItem serialises an item together with its kind tag
func EncodeItem(item Item) ([]byte, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", item.Kind(), err)
	}
	return json.Marshal(itemEnvelope{Kind: item.Kind(), Item: body})
}

// DecodeItem restores an item written by EncodeItem
func DecodeItem(data []byte) (Item, error) {
	var env itemEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode item envelope: %w", err)
	}

	var item Item
	switch env.Kind {
	case KindCar:
		item = &Car{}
	case KindBike:
		item = &Bike{}
	default:
		return nil, fmt.Errorf("unsupported item kind: %q", env.Kind)
	}

	if err := json.Unmarshal(env.Item, item); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", env.Kind, err)
	}
	return item, nil
}
