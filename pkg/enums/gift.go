package enums

import "fmt"

// DateType identifies the recurring occasion a rule fires on.
type DateType string

const (
	DateTypeBirthday    DateType = "birthday"
	DateTypeAnniversary DateType = "anniversary"
	DateTypeChristmas   DateType = "christmas"
	DateTypeValentines  DateType = "valentines_day"
	DateTypeMothersDay  DateType = "mothers_day"
	DateTypeFathersDay  DateType = "fathers_day"
	DateTypeCustom      DateType = "custom"
)

var validDateTypes = []DateType{
	DateTypeBirthday,
	DateTypeAnniversary,
	DateTypeChristmas,
	DateTypeValentines,
	DateTypeMothersDay,
	DateTypeFathersDay,
	DateTypeCustom,
}

func (d DateType) IsValid() bool {
	for _, candidate := range validDateTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDateType converts raw strings into DateType.
func ParseDateType(value string) (DateType, error) {
	for _, candidate := range validDateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid date type %q", value)
}

// GiftSource tags where a selected product came from.
type GiftSource string

const (
	GiftSourceWishlist       GiftSource = "wishlist"
	GiftSourceRecommendation GiftSource = "recommendation"
	GiftSourcePopular        GiftSource = "popular"
)

var validGiftSources = []GiftSource{
	GiftSourceWishlist,
	GiftSourceRecommendation,
	GiftSourcePopular,
}

func (g GiftSource) IsValid() bool {
	for _, candidate := range validGiftSources {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGiftSource converts raw strings into GiftSource.
func ParseGiftSource(value string) (GiftSource, error) {
	for _, candidate := range validGiftSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gift source %q", value)
}

// AddressCollectionStatus tracks the recipient-address handoff on an execution.
type AddressCollectionStatus string

const (
	AddressCollectionRequested AddressCollectionStatus = "requested"
	AddressCollectionReceived  AddressCollectionStatus = "received"
)

func (a AddressCollectionStatus) IsValid() bool {
	return a == AddressCollectionRequested || a == AddressCollectionReceived
}
