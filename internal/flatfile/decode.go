package flatfile

import (
	"fmt"
	"strings"

	"market-ledger/internal/models"
)

// DecodeProfile builds a profile from a six-line record
func DecodeProfile(fields []string) (*models.Profile, error) {
	if err := expect(models.KindProfile, fields); err != nil {
		return nil, err
	}
	age, err := parseInt("age", fields[4])
	if err != nil {
		return nil, err
	}
	balance, err := models.ParseAmount("balance", fields[5])
	if err != nil {
		return nil, err
	}
	return models.NewProfile(fields[0], fields[1], fields[2], fields[3], age, balance)
}

// DecodeFrame builds a frame from a "gear,material" line
func DecodeFrame(fields []string) (*models.Frame, error) {
	if err := expect(models.KindFrame, fields); err != nil {
		return nil, err
	}
	parts := strings.Split(fields[0], ",")
	if len(parts) != 2 {
		return nil, &models.ValidationError{Field: "frame", Message: "frame record must be gear,material", Value: fields[0]}
	}
	gear, err := parseInt("gear", parts[0])
	if err != nil {
		return nil, err
	}
	material, err := models.ParseMaterial(parts[1])
	if err != nil {
		return nil, err
	}
	return models.NewFrame(gear, material)
}

// DecodeCar builds a car from a twelve-line record. The owner is carried as
// OwnerID only and still has to be resolved against the store.
func DecodeCar(fields []string) (*models.Car, error) {
	if err := expect(models.KindCar, fields); err != nil {
		return nil, err
	}
	listing, err := decodeListing(fields[:7])
	if err != nil {
		return nil, err
	}
	year, err := parseInt("year", fields[7])
	if err != nil {
		return nil, err
	}
	power, err := parseInt("power", fields[8])
	if err != nil {
		return nil, err
	}
	passengers, err := parseInt("passengers", fields[9])
	if err != nil {
		return nil, err
	}
	return models.NewCar(listing, year, power, passengers, fields[10], fields[11])
}

// DecodeBike builds a bike from a twelve-line record. Owner and frame are
// carried as identifiers only.
func DecodeBike(fields []string) (*models.Bike, error) {
	if err := expect(models.KindBike, fields); err != nil {
		return nil, err
	}
	listing, err := decodeListing(fields[:7])
	if err != nil {
		return nil, err
	}
	gear, err := parseInt("gear", fields[7])
	if err != nil {
		return nil, err
	}
	frameID, err := parseID("frame_id", fields[8])
	if err != nil {
		return nil, err
	}
	lights, err := models.ParseFlag("lights", fields[9])
	if err != nil {
		return nil, err
	}
	bell, err := models.ParseFlag("bell", fields[10])
	if err != nil {
		return nil, err
	}
	brakes, err := models.ParseFlag("brakes", fields[11])
	if err != nil {
		return nil, err
	}
	return models.NewBike(listing, gear, models.FrameRef{ID: frameID}, lights, bell, brakes)
}

// DecodeItem decodes a car or bike record
func DecodeItem(kind models.Kind, fields []string) (models.Item, error) {
	switch kind {
	case models.KindCar:
		return DecodeCar(fields)
	case models.KindBike:
		return DecodeBike(fields)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}

func decodeListing(fields []string) (models.Listing, error) {
	auction, err := models.ParseFlag("auction", fields[2])
	if err != nil {
		return models.Listing{}, err
	}
	price, err := models.ParseAmount("price", fields[3])
	if err != nil {
		return models.Listing{}, err
	}
	weight, err := models.ParseAmount("weight", fields[4])
	if err != nil {
		return models.Listing{}, err
	}
	ownerID, err := parseID("owner_id", fields[5])
	if err != nil {
		return models.Listing{}, err
	}
	available, err := models.ParseFlag("available", fields[6])
	if err != nil {
		return models.Listing{}, err
	}
	return models.NewListing(fields[0], fields[1], auction, price, weight, models.ProfileRef{ID: ownerID}, available), nil
}

func expect(kind models.Kind, fields []string) error {
	n, err := FieldCount(kind)
	if err != nil {
		return err
	}
	if len(fields) != n {
		return fmt.Errorf("%w: %s record has %d fields, expected %d", ErrTruncatedRecord, kind, len(fields), n)
	}
	return nil
}
