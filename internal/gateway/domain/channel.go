package domain

import "strings"

const (
	KindMobileMoney = "mobile_money"
	KindBank        = "bank"
)

const (
	ChannelMomoMTN    = "momo_mtn"
	ChannelMomoAirtel = "momo_airtel"
	ChannelBankBK     = "bank_bk"
	ChannelBankIMB    = "bank_imb"
	ChannelBankEQT    = "bank_eqt"
)

// Channel maps a public channel code to the gateway provider and the
// operator or bank code the provider expects.
type Channel struct {
	Code         string
	Kind         string
	Provider     string
	OperatorCode string
}

// Registration is static; new channels ship with a release.
var channels = map[string]Channel{
	ChannelMomoMTN:    {Code: ChannelMomoMTN, Kind: KindMobileMoney, Provider: "irembopay", OperatorCode: "MTN"},
	ChannelMomoAirtel: {Code: ChannelMomoAirtel, Kind: KindMobileMoney, Provider: "irembopay", OperatorCode: "AIRTEL"},
	ChannelBankBK:     {Code: ChannelBankBK, Kind: KindBank, Provider: "irembopay", OperatorCode: "BK"},
	ChannelBankIMB:    {Code: ChannelBankIMB, Kind: KindBank, Provider: "irembopay", OperatorCode: "IMB"},
	ChannelBankEQT:    {Code: ChannelBankEQT, Kind: KindBank, Provider: "irembopay", OperatorCode: "EQT"},
}

func LookupChannel(code string) (Channel, bool) {
	ch, ok := channels[strings.ToLower(strings.TrimSpace(code))]
	return ch, ok
}

func (c Channel) IsMobileMoney() bool {
	return c.Kind == KindMobileMoney
}
