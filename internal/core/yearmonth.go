package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidYearMonth = errors.New("invalid year-month")

// YearMonth identifies a billing period. It serializes as "YYYY-MM".
type YearMonth struct {
	Year  int
	Month int
}

// NewYearMonth builds a YearMonth without validating it.
func NewYearMonth(year, month int) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// YearMonthOf returns the period containing t, in t's location.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// ParseYearMonth parses "YYYY-MM". A trailing day ("YYYY-MM-DD") is accepted
// and ignored.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) < 2 || len(parts) > 3 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	ym := YearMonth{Year: y, Month: m}
	if err := ym.Validate(); err != nil {
		return YearMonth{}, err
	}
	return ym, nil
}

func (ym YearMonth) Validate() error {
	if ym.Month < 1 || ym.Month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidYearMonth, ym.Month)
	}
	if ym.Year < 1900 || ym.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidYearMonth, ym.Year)
	}
	return nil
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

// AddMonths steps n calendar months forward (negative n steps back).
func (ym YearMonth) AddMonths(n int) YearMonth {
	idx := ym.Year*12 + (ym.Month - 1) + n
	return YearMonth{Year: idx / 12, Month: idx%12 + 1}
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) MarshalText() ([]byte, error) {
	return []byte(ym.String()), nil
}

func (ym *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}
