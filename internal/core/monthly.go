package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MonthlyRecord aggregates daily records for one calendar month. Month is
// the first day of the month. Per-month columns are fresh sums of the
// daily values; the C-prefixed columns are running sums across months.
type MonthlyRecord struct {
	Serial      int             `json:"Sl"`
	Month       Date            `json:"Month"`
	Gain        decimal.Decimal `json:"Gain"`
	Loss        decimal.Decimal `json:"Loss"`
	Net         decimal.Decimal `json:"Net"`
	Cum         decimal.Decimal `json:"Cum"`
	Withdrawal  decimal.Decimal `json:"Withdrawal"`
	CWithdrawal decimal.Decimal `json:"CWithdrawal"`
	Deposit     decimal.Decimal `json:"Deposit"`
	CDeposit    decimal.Decimal `json:"CDeposit"`
	Balance     decimal.Decimal `json:"Balance"`

	WithdrawalConv  *decimal.Decimal `json:"WithdrawalConv,omitempty"`
	CWithdrawalConv *decimal.Decimal `json:"CWithdrawalConv,omitempty"`
}

// monthSum accumulates the per-month sums before the cumulative fold.
type monthSum struct {
	month          Date
	gain           decimal.Decimal
	loss           decimal.Decimal
	withdrawal     decimal.Decimal
	deposit        decimal.Decimal
	withdrawalConv decimal.Decimal
}

// ComputeMonthly aggregates enriched daily records into monthly records.
//
// The input must already be in ascending date order, as produced by
// ComputeDaily. Months are summed from the per-day values, never from the
// daily cumulative columns, so the monthly cumulative at month M equals
// the daily cumulative of the last day in M. Months without records do
// not appear.
func ComputeMonthly(daily []DailyRecord, opts Options) ([]MonthlyRecord, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return []MonthlyRecord{}, nil
	}

	var sums []*monthSum
	index := make(map[string]*monthSum)
	for i, rec := range daily {
		if err := rec.Date.Validate(); err != nil {
			return nil, fmt.Errorf("daily record %d: %w", i, err)
		}
		key := rec.Date.MonthStart().String()
		bucket, ok := index[key]
		if !ok {
			bucket = &monthSum{month: rec.Date.MonthStart()}
			index[key] = bucket
			sums = append(sums, bucket)
		}
		bucket.gain = bucket.gain.Add(rec.Gain)
		bucket.loss = bucket.loss.Add(rec.Loss)
		bucket.withdrawal = bucket.withdrawal.Add(rec.Withdrawal)
		bucket.deposit = bucket.deposit.Add(rec.Deposit)
		if rec.WithdrawalConv != nil {
			bucket.withdrawalConv = bucket.withdrawalConv.Add(*rec.WithdrawalConv)
		}
	}

	records := make([]MonthlyRecord, 0, len(sums))
	var cum, cwd, cdep, cwdConv decimal.Decimal
	for i, m := range sums {
		net := m.gain.Sub(m.loss)
		cum = cum.Add(net)
		cwd = cwd.Add(m.withdrawal)
		cdep = cdep.Add(m.deposit)

		rec := MonthlyRecord{
			Serial:      i + 1,
			Month:       m.month,
			Gain:        m.gain,
			Loss:        m.loss,
			Net:         net,
			Cum:         cum,
			Withdrawal:  m.withdrawal,
			CWithdrawal: cwd,
			Deposit:     m.deposit,
			CDeposit:    cdep,
			Balance:     opts.balance(cum, cwd, cdep),
		}
		if opts.ExchangeRate != nil {
			cwdConv = cwdConv.Add(m.withdrawalConv)
			convCopy, cumCopy := m.withdrawalConv, cwdConv
			rec.WithdrawalConv = &convCopy
			rec.CWithdrawalConv = &cumCopy
		}
		records = append(records, rec)
	}
	return records, nil
}
