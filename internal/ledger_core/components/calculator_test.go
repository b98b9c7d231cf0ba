package components

import (
	"testing"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeInstallmentValue(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		count    int
		rate     string
		expected string
		wantErr  bool
	}{
		{name: "rounds half up", total: "100.00", count: 3, rate: "0", expected: "33.33"},
		{name: "even split", total: "900.00", count: 3, rate: "0", expected: "300.00"},
		{name: "simple interest over the term", total: "1000.00", count: 10, rate: "1.5", expected: "115.00"},
		{name: "single installment with interest", total: "100.00", count: 1, rate: "2.99", expected: "102.99"},
		{name: "zero count", total: "100.00", count: 0, rate: "0", wantErr: true},
		{name: "zero total", total: "0", count: 3, rate: "0", wantErr: true},
		{name: "negative total", total: "-1.00", count: 3, rate: "0", wantErr: true},
		{name: "negative rate", total: "100.00", count: 3, rate: "-0.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := ComputeInstallmentValue(money(tt.total), tt.count, money(tt.rate))
			if tt.wantErr {
				assert.ErrorIs(t, err, shared.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value.StringFixed(2))
		})
	}
}

func TestBuildSchedule(t *testing.T) {
	t.Run("total payable without interest is the total", func(t *testing.T) {
		s, err := BuildSchedule(money("100.00"), 3, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "100.00", s.TotalPayable.StringFixed(2))
		assert.Equal(t, "33.33", s.PerInstallment.StringFixed(2))
		assert.Equal(t, "33.34", s.LastInstallment(money("66.66")).StringFixed(2))
	})

	t.Run("total payable with interest", func(t *testing.T) {
		s, err := BuildSchedule(money("1000.00"), 10, money("1.5"))
		require.NoError(t, err)
		assert.Equal(t, "1150.00", s.TotalPayable.StringFixed(2))
	})

	t.Run("rejects totals too small to split", func(t *testing.T) {
		_, err := BuildSchedule(money("0.06"), 12, decimal.Zero)
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})

	t.Run("smallest splittable total", func(t *testing.T) {
		s, err := BuildSchedule(money("0.12"), 12, decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "0.01", s.LastInstallment(money("0.11")).StringFixed(2))
	})
}

func TestDueDate(t *testing.T) {
	first := date("2024-01-31")

	assert.Equal(t, "2024-01-31", DueDate(first, 1).Format(shared.DateLayout))
	assert.Equal(t, "2024-02-29", DueDate(first, 2).Format(shared.DateLayout))
	assert.Equal(t, "2024-03-31", DueDate(first, 3).Format(shared.DateLayout))
	assert.Equal(t, "2025-01-31", DueDate(first, 13).Format(shared.DateLayout))
}
