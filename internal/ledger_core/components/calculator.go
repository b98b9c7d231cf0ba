package components

import (
	"fmt"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Schedule holds the amounts of an installment plan before any entry is written
type Schedule struct {
	Count          int
	PerInstallment decimal.Decimal // amount of installments 1..Count-1
	TotalPayable   decimal.Decimal // what all installments must add up to
}

func checkPlanTerms(total decimal.Decimal, count int, ratePercent decimal.Decimal) error {
	if count < 1 {
		return fmt.Errorf("%w: installment count must be at least 1, got %d", shared.ErrInvalidArgument, count)
	}
	if !total.IsPositive() {
		return fmt.Errorf("%w: total amount must be positive, got %s", shared.ErrInvalidArgument, total.String())
	}
	if ratePercent.IsNegative() {
		return fmt.Errorf("%w: interest rate cannot be negative, got %s", shared.ErrInvalidArgument, ratePercent.String())
	}
	return nil
}

// adjustedTotal applies simple interest over the whole term:
// total × (1 + rate/100 × count). Not rounded.
func adjustedTotal(total decimal.Decimal, count int, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return total
	}
	factor := decimal.NewFromInt(1).Add(shared.Percent(ratePercent).Mul(decimal.NewFromInt(int64(count))))
	return total.Mul(factor)
}

// ComputeInstallmentValue returns the rounded amount of one installment
func ComputeInstallmentValue(total decimal.Decimal, count int, ratePercent decimal.Decimal) (decimal.Decimal, error) {
	if err := checkPlanTerms(total, count, ratePercent); err != nil {
		return decimal.Zero, err
	}
	perInstallment := adjustedTotal(total, count, ratePercent).Div(decimal.NewFromInt(int64(count)))
	return shared.RoundCurrency(perInstallment), nil
}

// BuildSchedule computes the per-installment amount and the total payable.
// A total too small to give the last installment a non-negative remainder is
// rejected, e.g. 0.06 over 12 installments rounds every share up to 0.01.
func BuildSchedule(total decimal.Decimal, count int, ratePercent decimal.Decimal) (Schedule, error) {
	perInstallment, err := ComputeInstallmentValue(total, count, ratePercent)
	if err != nil {
		return Schedule{}, err
	}

	s := Schedule{
		Count:          count,
		PerInstallment: perInstallment,
		TotalPayable:   shared.RoundCurrency(adjustedTotal(total, count, ratePercent)),
	}
	if s.LastInstallment(s.PerInstallment.Mul(decimal.NewFromInt(int64(count - 1)))).IsNegative() {
		return Schedule{}, fmt.Errorf("%w: total %s cannot be split into %d installments",
			shared.ErrInvalidArgument, total.StringFixed(shared.CurrencyPlaces), count)
	}
	return s, nil
}

// LastInstallment absorbs the rounding remainder left by the installments already written
func (s Schedule) LastInstallment(persistedSum decimal.Decimal) decimal.Decimal {
	return s.TotalPayable.Sub(persistedSum)
}

// DueDate returns the due date of the 1-based installment index
func DueDate(firstDueDate time.Time, index int) time.Time {
	return shared.AddMonths(firstDueDate, index-1)
}
