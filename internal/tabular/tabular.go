// Package tabular maps derived records to and from plain tabular data.
//
// The column names are a compatibility contract with previously exported
// files and must not change.
package tabular

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cryptoceek87-hub/crypto-pnl-tracker/internal/core"
)

// Daily column names, in export order.
const (
	ColSl              = "Sl"
	ColDate            = "Date"
	ColMonth           = "Month"
	ColGain            = "Gain ($)"
	ColCgain           = "Cgain ($)"
	ColLoss            = "Loss ($)"
	ColCloss           = "Closs ($)"
	ColNet             = "Net ($)"
	ColCum             = "Cum ($)"
	ColWithdrawal      = "Withdrawal ($)"
	ColCWithdrawal     = "CWithdrawal ($)"
	ColDeposit         = "Deposit ($)"
	ColCDeposit        = "CDeposit ($)"
	ColBalance         = "Balance ($)"
	ColWithdrawalConv  = "WithdrawalConv ($)"
	ColCWithdrawalConv = "CWithdrawalConv ($)"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrBadNumber     = errors.New("invalid numeric value")
)

// Table is an in-memory tabular structure, one header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

func dailyHeader(withConv bool) []string {
	h := []string{
		ColSl, ColDate, ColGain, ColCgain, ColLoss, ColCloss,
		ColNet, ColCum, ColWithdrawal, ColCWithdrawal,
		ColDeposit, ColCDeposit, ColBalance,
	}
	if withConv {
		h = append(h, ColWithdrawalConv, ColCWithdrawalConv)
	}
	return h
}

func monthlyHeader(withConv bool) []string {
	h := []string{
		ColSl, ColMonth, ColGain, ColLoss, ColNet, ColCum,
		ColWithdrawal, ColCWithdrawal, ColDeposit, ColCDeposit, ColBalance,
	}
	if withConv {
		h = append(h, ColWithdrawalConv, ColCWithdrawalConv)
	}
	return h
}

// DailyTable renders daily records into the export column layout. The
// converted withdrawal columns appear only when the records carry them.
func DailyTable(records []core.DailyRecord) Table {
	withConv := len(records) > 0 && records[0].WithdrawalConv != nil
	t := Table{Header: dailyHeader(withConv)}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Serial),
			r.Date.String(),
			r.Gain.String(),
			r.Cgain.String(),
			r.Loss.String(),
			r.Closs.String(),
			r.Net.String(),
			r.Cum.String(),
			r.Withdrawal.String(),
			r.CWithdrawal.String(),
			r.Deposit.String(),
			r.CDeposit.String(),
			r.Balance.String(),
		}
		if withConv {
			row = append(row, r.WithdrawalConv.String(), r.CWithdrawalConv.String())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// MonthlyTable renders monthly records into the export column layout.
func MonthlyTable(records []core.MonthlyRecord) Table {
	withConv := len(records) > 0 && records[0].WithdrawalConv != nil
	t := Table{Header: monthlyHeader(withConv)}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Serial),
			r.Month.String(),
			r.Gain.String(),
			r.Loss.String(),
			r.Net.String(),
			r.Cum.String(),
			r.Withdrawal.String(),
			r.CWithdrawal.String(),
			r.Deposit.String(),
			r.CDeposit.String(),
			r.Balance.String(),
		}
		if withConv {
			row = append(row, r.WithdrawalConv.String(), r.CWithdrawalConv.String())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ParseEntries reads raw entries from an imported table. The required
// columns are Date plus the amount columns of the active variant; any
// missing one rejects the whole table before a single row is parsed.
// Rows with a blank date are skipped; blank amount cells count as 0.
func ParseEntries(t Table, opts core.Options) ([]core.Entry, error) {
	required := []string{ColDate, ColGain, ColLoss, ColWithdrawal}
	if !opts.SignedWithdrawal {
		required = append(required, ColDeposit)
	}

	index := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	var entries []core.Entry
	for n, row := range t.Rows {
		dateCell := cell(row, index[ColDate])
		if dateCell == "" {
			continue
		}
		date, err := core.ParseDate(dateCell)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+1, err)
		}

		e := core.Entry{Date: date}
		if e.Gain, err = parseAmount(cell(row, index[ColGain])); err != nil {
			return nil, fmt.Errorf("row %d, %s: %w", n+1, ColGain, err)
		}
		if e.Loss, err = parseAmount(cell(row, index[ColLoss])); err != nil {
			return nil, fmt.Errorf("row %d, %s: %w", n+1, ColLoss, err)
		}
		if e.Withdrawal, err = parseAmount(cell(row, index[ColWithdrawal])); err != nil {
			return nil, fmt.Errorf("row %d, %s: %w", n+1, ColWithdrawal, err)
		}
		if !opts.SignedWithdrawal {
			if e.Deposit, err = parseAmount(cell(row, index[ColDeposit])); err != nil {
				return nil, fmt.Errorf("row %d, %s: %w", n+1, ColDeposit, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadNumber, s)
	}
	return d, nil
}
