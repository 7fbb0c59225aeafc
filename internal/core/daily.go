package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// DailyRecord is one enriched ledger row. JSON keys match the original
// export wire format (Sl, Cgain, Cum, ...).
type DailyRecord struct {
	Serial      int             `json:"Sl"`
	Date        Date            `json:"Date"`
	Gain        decimal.Decimal `json:"Gain"`
	Cgain       decimal.Decimal `json:"Cgain"`
	Loss        decimal.Decimal `json:"Loss"`
	Closs       decimal.Decimal `json:"Closs"`
	Net         decimal.Decimal `json:"Net"`
	Cum         decimal.Decimal `json:"Cum"`
	Withdrawal  decimal.Decimal `json:"Withdrawal"`
	CWithdrawal decimal.Decimal `json:"CWithdrawal"`
	Deposit     decimal.Decimal `json:"Deposit"`
	CDeposit    decimal.Decimal `json:"CDeposit"`
	Balance     decimal.Decimal `json:"Balance"`

	// Converted withdrawal columns, present only when an exchange rate
	// is configured.
	WithdrawalConv  *decimal.Decimal `json:"WithdrawalConv,omitempty"`
	CWithdrawalConv *decimal.Decimal `json:"CWithdrawalConv,omitempty"`
}

// ComputeDaily derives the enriched daily records from raw entries.
//
// Entries are sorted ascending by date with a stable sort, so entries on
// the same date keep their input order and the cumulative columns follow
// that order deterministically. An entry with a zero date fails the whole
// call; no partial result is returned. An empty input yields an empty
// slice.
func ComputeDaily(entries []Entry, opts Options) ([]DailyRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []DailyRecord{}, nil
	}
	for i, e := range entries {
		if err := e.Date.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Time.Before(sorted[j].Date.Time)
	})

	records := make([]DailyRecord, 0, len(sorted))
	var cgain, closs, cum, cwd, cdep, cwdConv decimal.Decimal
	for i, e := range sorted {
		gain, loss, wd, dep := e.Gain, e.Loss, e.Withdrawal, e.Deposit
		if opts.SignedWithdrawal {
			dep = decimal.Zero
		}

		net := gain.Sub(loss)
		cgain = cgain.Add(gain)
		closs = closs.Add(loss)
		cum = cum.Add(net)
		cwd = cwd.Add(wd)
		cdep = cdep.Add(dep)

		rec := DailyRecord{
			Serial:      i + 1,
			Date:        e.Date,
			Gain:        gain,
			Cgain:       cgain,
			Loss:        loss,
			Closs:       closs,
			Net:         net,
			Cum:         cum,
			Withdrawal:  wd,
			CWithdrawal: cwd,
			Deposit:     dep,
			CDeposit:    cdep,
			Balance:     opts.balance(cum, cwd, cdep),
		}
		if opts.ExchangeRate != nil {
			conv := wd.Mul(*opts.ExchangeRate)
			cwdConv = cwdConv.Add(conv)
			convCopy, cumCopy := conv, cwdConv
			rec.WithdrawalConv = &convCopy
			rec.CWithdrawalConv = &cumCopy
		}
		records = append(records, rec)
	}
	return records, nil
}
