package runs

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// dbTime scans DATE/TIMESTAMP columns from either driver.
// pgx hands over time.Time; SQLite may return the stored text.
type dbTime struct {
	Time time.Time
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into time", src)
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized time format %q", s)
}

type nullTime struct {
	dbTime
	Valid bool
}

func (t *nullTime) Scan(src any) error {
	if src == nil {
		t.Valid = false
		return nil
	}
	t.Valid = true
	return t.dbTime.Scan(src)
}

// dateOnly truncates to the UTC calendar day
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullShares(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: contracts.FloorShares(*d), Valid: true}
}
