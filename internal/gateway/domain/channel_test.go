package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupChannel(t *testing.T) {
	cases := []struct {
		code         string
		kind         string
		operatorCode string
	}{
		{code: ChannelMomoMTN, kind: KindMobileMoney, operatorCode: "MTN"},
		{code: ChannelMomoAirtel, kind: KindMobileMoney, operatorCode: "AIRTEL"},
		{code: ChannelBankBK, kind: KindBank, operatorCode: "BK"},
		{code: ChannelBankIMB, kind: KindBank, operatorCode: "IMB"},
		{code: ChannelBankEQT, kind: KindBank, operatorCode: "EQT"},
	}

	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			ch, ok := LookupChannel(tc.code)
			require.True(t, ok)
			assert.Equal(t, tc.code, ch.Code)
			assert.Equal(t, tc.kind, ch.Kind)
			assert.Equal(t, "irembopay", ch.Provider)
			assert.Equal(t, tc.operatorCode, ch.OperatorCode)
		})
	}

	t.Run("case and whitespace folding", func(t *testing.T) {
		ch, ok := LookupChannel("  MOMO_MTN ")
		require.True(t, ok)
		assert.Equal(t, ChannelMomoMTN, ch.Code)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, ok := LookupChannel("momo_tigo")
		assert.False(t, ok)
	})
}

func TestChannelIsMobileMoney(t *testing.T) {
	momo, _ := LookupChannel(ChannelMomoAirtel)
	bank, _ := LookupChannel(ChannelBankBK)

	assert.True(t, momo.IsMobileMoney())
	assert.False(t, bank.IsMobileMoney())
}
