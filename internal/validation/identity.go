// Package validation holds the format rules for roster identifiers.
package validation

import (
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/roster-ledger-api/internal/models"
)

// ErrInvalidFormat is returned by ValidateDate for unparseable input.
var ErrInvalidFormat = errors.New("invalid date format")

// Slash and dash dates are day first only; month-first input such as
// 12/31/2024 is rejected rather than guessed.
var dateLayouts = []string{
	models.DateLayout,
	models.VersionTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999Z",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

// ValidNationalID reports whether s is exactly 13 ASCII digits.
func ValidNationalID(s string) bool {
	return len(s) == 13 && allDigits(s)
}

// ValidPhone reports whether s is exactly 11 ASCII digits.
func ValidPhone(s string) bool {
	return len(s) == 11 && allDigits(s)
}

// ValidArea reports whether area is City or Sadar.
func ValidArea(area string) bool {
	return area == models.AreaCity || area == models.AreaSadar
}

// ValidUnitCode checks the pp_sz code for an area: PP-ddd for City, SZ-dd for Sadar.
func ValidUnitCode(code, area string) bool {
	switch area {
	case models.AreaCity:
		return hasDigitSuffix(code, "PP-", 3)
	case models.AreaSadar:
		return hasDigitSuffix(code, "SZ-", 2)
	default:
		return false
	}
}

// ValidCellCode checks the cc_uc code for an area. City cells only need the
// CC- or RW- prefix since the catalog carries suffixes like CC-001A.
func ValidCellCode(code, area string) bool {
	switch area {
	case models.AreaCity:
		return strings.HasPrefix(code, "CC-") || strings.HasPrefix(code, "RW-")
	case models.AreaSadar:
		return hasDigitSuffix(code, "UC-", 3)
	default:
		return false
	}
}

// ValidateDate accepts the empty string or any of the supported date and
// timestamp layouts.
func ValidateDate(s string) error {
	if _, err := ParseDate(s); err != nil {
		return err
	}
	return nil
}

// ParseDate parses s with the first matching layout. The zero time is
// returned for empty input.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidFormat
}

func hasDigitSuffix(code, prefix string, digits int) bool {
	if !strings.HasPrefix(code, prefix) {
		return false
	}
	rest := code[len(prefix):]
	return len(rest) == digits && allDigits(rest)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidRole reports whether role is one of the known worker roles.
func ValidRole(role string) bool {
	for _, r := range models.Roles {
		if r == role {
			return true
		}
	}
	return false
}
