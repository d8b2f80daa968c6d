package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAmountType(t *testing.T) {
	assert.True(t, ValidAmountType(AmountTypeFixed))
	assert.True(t, ValidAmountType(AmountTypePartialAllowed))
	assert.True(t, ValidAmountType(AmountTypeFlexible))
	assert.False(t, ValidAmountType("percentage"))
	assert.False(t, ValidAmountType(""))
}

func TestValidateBaseAmount(t *testing.T) {
	fixed := &PaymentType{AmountType: AmountTypeFixed, Amount: 10000}
	partial := &PaymentType{
		AmountType:          AmountTypePartialAllowed,
		Amount:              10000,
		MinimumAmount:       2000,
		AllowPartialPayment: true,
	}
	flexible := &PaymentType{AmountType: AmountTypeFlexible}

	cases := []struct {
		name string
		pt   *PaymentType
		base int64
		want error
	}{
		{name: "fixed exact", pt: fixed, base: 10000},
		{name: "fixed under", pt: fixed, base: 9999, want: ErrAmountMismatch},
		{name: "fixed over", pt: fixed, base: 10001, want: ErrAmountMismatch},
		{name: "partial at minimum", pt: partial, base: 2000},
		{name: "partial at full", pt: partial, base: 10000},
		{name: "partial below minimum", pt: partial, base: 1999, want: ErrAmountOutOfRange},
		{name: "partial above full", pt: partial, base: 10001, want: ErrAmountOutOfRange},
		{name: "flexible any positive", pt: flexible, base: 1},
		{name: "zero base", pt: flexible, base: 0, want: ErrInvalidAmount},
		{name: "negative base", pt: fixed, base: -500, want: ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pt.ValidateBaseAmount(tc.base)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateBaseAmountPartialFlagCleared(t *testing.T) {
	// A partial_allowed type with the flag switched off accepts exactly the
	// configured amount, like a fixed type.
	pt := &PaymentType{
		AmountType:    AmountTypePartialAllowed,
		Amount:        10000,
		MinimumAmount: 2000,
	}
	require.NoError(t, pt.ValidateBaseAmount(10000))
	require.ErrorIs(t, pt.ValidateBaseAmount(5000), ErrAmountMismatch)
	require.ErrorIs(t, pt.ValidateBaseAmount(2000), ErrAmountMismatch)
	require.ErrorIs(t, pt.ValidateBaseAmount(10001), ErrAmountMismatch)
}

func TestValidateBaseAmountUnknownType(t *testing.T) {
	pt := &PaymentType{AmountType: "percentage", Amount: 10000}
	require.ErrorIs(t, pt.ValidateBaseAmount(10000), ErrInvalidAmountType)
}
