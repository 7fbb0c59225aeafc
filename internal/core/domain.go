package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the wire format for dates, both in the API and in tabular files.
const DateFormat = "2006-01-02"

type (
	// Date is a calendar date with day granularity. The embedded time is
	// always midnight UTC.
	Date struct {
		time.Time
	}

	// Entry is a raw daily ledger row as supplied by the caller. Amounts
	// left at their zero value count as 0, which is not an error.
	Entry struct {
		Date       Date
		Gain       decimal.Decimal
		Loss       decimal.Decimal
		Withdrawal decimal.Decimal
		Deposit    decimal.Decimal
	}

	// Options selects the balance formula variant. The zero value is the
	// plain variant: separate non-negative withdrawal and deposit columns
	// plus a starting balance.
	Options struct {
		StartingBalance decimal.Decimal
		// ExchangeRate, when set, adds a converted withdrawal column
		// (withdrawal multiplied by the rate) and its running sum.
		ExchangeRate *decimal.Decimal
		// SignedWithdrawal switches to the signed variant: withdrawal
		// may be negative (acting as a deposit), the deposit column and
		// the starting balance are ignored.
		SignedWithdrawal bool
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrNegativeAmount = errors.New("negative amount")
	ErrInvalidRate    = errors.New("exchange rate must be positive")
)

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Year returns the year.
func (d Date) Year() int { return d.Time.Year() }

// Month returns the month as 1-12.
func (d Date) Month() int { return int(d.Time.Month()) }

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// MonthStart returns the first day of the date's calendar month.
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.Time.Format(DateFormat) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the entry for use as a new ledger row. Gain and loss
// must be non-negative; the withdrawal sign is not checked here because
// the signed variant allows negative withdrawals.
func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Gain.IsNegative() {
		return fmt.Errorf("gain: %w", ErrNegativeAmount)
	}
	if e.Loss.IsNegative() {
		return fmt.Errorf("loss: %w", ErrNegativeAmount)
	}
	return nil
}

func (o Options) Validate() error {
	if o.ExchangeRate != nil && !o.ExchangeRate.IsPositive() {
		return ErrInvalidRate
	}
	return nil
}

// balance applies the variant's balance formula to cumulative values.
func (o Options) balance(cumNet, cumWithdrawal, cumDeposit decimal.Decimal) decimal.Decimal {
	if o.SignedWithdrawal {
		return cumNet.Sub(cumWithdrawal)
	}
	return o.StartingBalance.Add(cumNet).Add(cumDeposit).Sub(cumWithdrawal)
}
