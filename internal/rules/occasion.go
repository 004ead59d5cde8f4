package rules

import (
	"time"

	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/enums"
)

// NextOccasion resolves the next occurrence of a rule's occasion on or after
// the reference time. Birthdays need the recipient's stored birthday; rules
// without enough data return false.
func NextOccasion(rule models.GiftRule, recipientBirthday *time.Time, now time.Time) (time.Time, bool) {
	today := truncateToDate(now)

	switch rule.DateType {
	case enums.DateTypeBirthday:
		if recipientBirthday == nil {
			return time.Time{}, false
		}
		return nextAnnual(recipientBirthday.Month(), recipientBirthday.Day(), today), true
	case enums.DateTypeAnniversary, enums.DateTypeCustom:
		if rule.OccasionDate == nil {
			return time.Time{}, false
		}
		return nextAnnual(rule.OccasionDate.Month(), rule.OccasionDate.Day(), today), true
	case enums.DateTypeChristmas:
		return nextAnnual(time.December, 25, today), true
	case enums.DateTypeValentines:
		return nextAnnual(time.February, 14, today), true
	case enums.DateTypeMothersDay:
		return nextNthSunday(time.May, 2, today), true
	case enums.DateTypeFathersDay:
		return nextNthSunday(time.June, 3, today), true
	default:
		return time.Time{}, false
	}
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextAnnual(month time.Month, day int, today time.Time) time.Time {
	candidate := time.Date(today.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if candidate.Before(today) {
		candidate = time.Date(today.Year()+1, month, day, 0, 0, 0, 0, time.UTC)
	}
	return candidate
}

// nextNthSunday returns the next occurrence of the nth Sunday of the given
// month on or after today.
func nextNthSunday(month time.Month, nth int, today time.Time) time.Time {
	candidate := nthSundayOf(today.Year(), month, nth)
	if candidate.Before(today) {
		candidate = nthSundayOf(today.Year()+1, month, nth)
	}
	return candidate
}

func nthSundayOf(year int, month time.Month, nth int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (7 - int(first.Weekday())) % 7
	return first.AddDate(0, 0, offset+(nth-1)*7)
}
