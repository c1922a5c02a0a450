package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Bike is an item variant mounted on a frame
type Bike struct {
	Listing
	Gear    int    `json:"gear" db:"gear"`
	FrameID int64  `json:"frame_id" db:"frame_id"`
	Frame   *Frame `json:"frame,omitempty"`
	Lights  bool   `json:"lights" db:"lights"`
	Bell    bool   `json:"bell" db:"bell"`
	Brakes  bool   `json:"brakes" db:"brakes"`
}

// NewBike creates a validated bike on the referenced frame
func NewBike(listing Listing, gear int, frame FrameRef, lights, bell, brakes bool) (*Bike, error) {
	b := &Bike{
		Listing: listing,
		Gear:    gear,
		FrameID: frame.ID,
		Lights:  lights,
		Bell:    bell,
		Brakes:  brakes,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate validates the bike data
func (b *Bike) Validate() error {
	return firstError(
		b.Listing.validate(),
		requireNonNegative("gear", b.Gear),
	)
}

func (b *Bike) Kind() Kind { return KindBike }

func (b *Bike) Base() *Listing { return &b.Listing }

func (b *Bike) sealed() {}

// Clone returns a structurally independent copy, owner and frame included
func (b *Bike) Clone() Item {
	cp := *b
	cp.Listing = b.Listing.clone()
	if b.Frame != nil {
		f := *b.Frame
		cp.Frame = &f
	}
	return &cp
}

// Describe returns a human readable description of the bike
func (b *Bike) Describe() string {
	if !b.Available {
		return "Bike is not available"
	}
	var sb strings.Builder
	b.Listing.describe(&sb)
	fmt.Fprintf(&sb, "Gears: %d\n", b.Gear)
	if b.Frame != nil {
		fmt.Fprintf(&sb, "Frame: %s\n", b.Frame.Material)
	} else {
		fmt.Fprintf(&sb, "Frame: #%d\n", b.FrameID)
	}
	fmt.Fprintf(&sb, "Lights: %t\n", b.Lights)
	fmt.Fprintf(&sb, "Bell: %t\n", b.Bell)
	fmt.Fprintf(&sb, "Working brakes: %t", b.Brakes)
	return sb.String()
}

// Record returns the twelve-line flat record for the bike
func (b *Bike) Record() []string {
	return append(b.Listing.record(),
		strconv.Itoa(b.Gear),
		strconv.FormatInt(b.FrameID, 10),
		FormatFlag(b.Lights),
		FormatFlag(b.Bell),
		FormatFlag(b.Brakes),
	)
}
