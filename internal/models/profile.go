package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Profile represents a marketplace account
type Profile struct {
	ID        int64           `json:"id" db:"id"`
	Nick      string          `json:"nick" db:"nick" validate:"required"`
	Password  string          `json:"-" db:"password"`
	Name      string          `json:"name" db:"name"`
	Surname   string          `json:"surname" db:"surname"`
	Age       int             `json:"age" db:"age" validate:"gte=0"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ProfileRef is a lightweight handle to a persisted profile
type ProfileRef struct {
	ID int64 `json:"id"`
}

// NewProfile creates a validated profile
func NewProfile(nick, password, name, surname string, age int, balance decimal.Decimal) (*Profile, error) {
	now := time.Now()
	p := &Profile{
		Nick:      nick,
		Password:  password,
		Name:      name,
		Surname:   surname,
		Age:       age,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate validates the profile data
func (p *Profile) Validate() error {
	return firstError(
		requireText("nick", p.Nick),
		requireNonNegative("age", p.Age),
		requireNonNegativeAmount("balance", p.Balance),
	)
}

// Ref returns a reference handle for the profile
func (p *Profile) Ref() ProfileRef {
	return ProfileRef{ID: p.ID}
}

// Clone returns an independent copy of the profile's current fields
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// DisplayName returns the name shown in descriptions
func (p *Profile) DisplayName() string {
	full := strings.TrimSpace(p.Name + " " + p.Surname)
	if full == "" {
		return p.Nick
	}
	return full
}

// CanAfford reports whether the balance covers the given price
func (p *Profile) CanAfford(price decimal.Decimal) bool {
	return p.Balance.GreaterThanOrEqual(price)
}

// Record returns the six-line flat record for the profile
func (p *Profile) Record() []string {
	return []string{p.Nick, p.Password, p.Name, p.Surname, strconv.Itoa(p.Age), p.Balance.String()}
}

// UpdateTimestamp updates the UpdatedAt timestamp
func (p *Profile) UpdateTimestamp() {
	p.UpdatedAt = time.Now()
}
