package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/policy-billing/internal/model"
)

func TestOutstanding(t *testing.T) {
	invoices := []model.Invoice{
		{BillDate: date(2015, time.January, 1), AmountDue: 300, State: model.InvoiceStateActive},
		{BillDate: date(2015, time.April, 1), AmountDue: 300, State: model.InvoiceStateActive},
		{BillDate: date(2015, time.January, 1), AmountDue: 1200, State: model.InvoiceStateSuperseded},
	}
	payments := []model.Payment{
		{TransactionDate: date(2015, time.February, 1), AmountPaid: 250},
		{TransactionDate: date(2015, time.May, 1), AmountPaid: 400},
	}

	testCases := []struct {
		name     string
		asOf     time.Time
		expected int64
	}{
		{name: "before_anything", asOf: date(2014, time.December, 31), expected: 0},
		{name: "first_bill_date", asOf: date(2015, time.January, 1), expected: 300},
		{name: "after_first_payment", asOf: date(2015, time.February, 1), expected: 50},
		{name: "second_bill_date", asOf: date(2015, time.April, 1), expected: 350},
		{name: "overpaid", asOf: date(2015, time.May, 1), expected: -50},
		{name: "time_of_day_ignored", asOf: date(2015, time.April, 1).Add(23 * time.Hour), expected: 350},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, outstanding(invoices, payments, tc.asOf))
		})
	}
}

func TestFirstMatchStopsAtFirstTrue(t *testing.T) {
	candidates := []model.Invoice{{AmountDue: 1}, {AmountDue: 2}, {AmountDue: 3}}
	calls := 0

	found, err := firstMatch(candidates, func(invoice model.Invoice) (bool, error) {
		calls++
		return invoice.AmountDue == 2, nil
	})

	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(2), found.AmountDue)
	assert.Equal(t, 2, calls)
}

func TestFirstMatchNoMatch(t *testing.T) {
	found, err := firstMatch([]model.Invoice{{}, {}}, func(model.Invoice) (bool, error) {
		return false, nil
	})

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestFirstMatchReturnsError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0

	found, err := firstMatch([]model.Invoice{{}, {}}, func(model.Invoice) (bool, error) {
		calls++
		return false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, found)
	assert.Equal(t, 1, calls)
}
