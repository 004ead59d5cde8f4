package rules

import (
	"testing"
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
)

func dateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestNextOccasionBirthday(t *testing.T) {
	birthday := dateOf(1990, time.June, 15)
	rule := models.GiftRule{DateType: enums.DateTypeBirthday}

	next, ok := NextOccasion(rule, &birthday, dateOf(2026, time.March, 1))
	if !ok {
		t.Fatal("expected a resolvable occasion")
	}
	if !next.Equal(dateOf(2026, time.June, 15)) {
		t.Fatalf("expected 2026-06-15, got %s", next)
	}

	next, _ = NextOccasion(rule, &birthday, dateOf(2026, time.July, 1))
	if !next.Equal(dateOf(2027, time.June, 15)) {
		t.Fatalf("expected rollover to 2027-06-15, got %s", next)
	}

	// the occasion day itself still counts
	next, _ = NextOccasion(rule, &birthday, dateOf(2026, time.June, 15).Add(5*time.Hour))
	if !next.Equal(dateOf(2026, time.June, 15)) {
		t.Fatalf("expected same-day match, got %s", next)
	}

	if _, ok := NextOccasion(rule, nil, dateOf(2026, time.March, 1)); ok {
		t.Fatal("birthday rule without a stored birthday must not resolve")
	}
}

func TestNextOccasionFixedHolidays(t *testing.T) {
	now := dateOf(2026, time.March, 1)

	next, ok := NextOccasion(models.GiftRule{DateType: enums.DateTypeChristmas}, nil, now)
	if !ok || !next.Equal(dateOf(2026, time.December, 25)) {
		t.Fatalf("expected 2026-12-25, got %s (ok=%v)", next, ok)
	}

	next, ok = NextOccasion(models.GiftRule{DateType: enums.DateTypeValentines}, nil, now)
	if !ok || !next.Equal(dateOf(2027, time.February, 14)) {
		t.Fatalf("expected 2027-02-14, got %s (ok=%v)", next, ok)
	}
}

func TestNextOccasionFloatingSundays(t *testing.T) {
	now := dateOf(2026, time.January, 1)

	// 2026: May 1 is a Friday, so the second Sunday is May 10.
	next, ok := NextOccasion(models.GiftRule{DateType: enums.DateTypeMothersDay}, nil, now)
	if !ok || !next.Equal(dateOf(2026, time.May, 10)) {
		t.Fatalf("expected 2026-05-10, got %s (ok=%v)", next, ok)
	}

	// 2026: June 1 is a Monday, so the third Sunday is June 21.
	next, ok = NextOccasion(models.GiftRule{DateType: enums.DateTypeFathersDay}, nil, now)
	if !ok || !next.Equal(dateOf(2026, time.June, 21)) {
		t.Fatalf("expected 2026-06-21, got %s (ok=%v)", next, ok)
	}
}

func TestNextOccasionCustomRequiresDate(t *testing.T) {
	anniversary := dateOf(2020, time.September, 3)
	rule := models.GiftRule{DateType: enums.DateTypeAnniversary, OccasionDate: &anniversary}

	next, ok := NextOccasion(rule, nil, dateOf(2026, time.October, 1))
	if !ok || !next.Equal(dateOf(2027, time.September, 3)) {
		t.Fatalf("expected 2027-09-03, got %s (ok=%v)", next, ok)
	}

	if _, ok := NextOccasion(models.GiftRule{DateType: enums.DateTypeCustom}, nil, dateOf(2026, time.March, 1)); ok {
		t.Fatal("custom rule without a date must not resolve")
	}
}
