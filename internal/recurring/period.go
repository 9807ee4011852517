package recurring

import (
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/enrollment-backend/pkg/errors"
)

const periodLayout = "2006-01"

// Period is a billing month such as 2026-03.
type Period struct {
	start time.Time
}

// ParsePeriod accepts YYYY-MM.
func ParsePeriod(value string) (Period, error) {
	t, err := time.Parse(periodLayout, value)
	if err != nil {
		return Period{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid period %q, expected YYYY-MM", value))
	}
	return Period{start: t.UTC()}, nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{start: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

func (p Period) String() string {
	return p.start.Format(periodLayout)
}

func (p Period) IsZero() bool {
	return p.start.IsZero()
}

// Label renders the period for ledger descriptions, e.g. "March 2026".
func (p Period) Label() string {
	return p.start.Format("January 2006")
}

func (p Period) Next() Period {
	return Period{start: p.start.AddDate(0, 1, 0)}
}
