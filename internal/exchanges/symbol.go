package exchanges

import (
	"strings"

	"cryptopulse/internal/domain"
)

// NormalizeSymbol strips punctuation from an exchange's pair string,
// converting it to the canonical 6-7 character Symbol form.
func NormalizeSymbol(pair string) domain.Symbol {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '-', '_', ':':
			return -1
		default:
			return r
		}
	}, pair)
	return domain.Symbol(strings.ToUpper(cleaned))
}

// ToKrakenPair adds the slash Kraken's wire format expects back into a
// canonical Symbol, e.g. "XRPUSD" -> "XRP/USD". This is the inverse of
// NormalizeSymbol and must round-trip losslessly for any configured
// 6-character symbol.
func ToKrakenPair(s domain.Symbol) string {
	str := string(s)
	if len(str) < 6 {
		return str
	}
	// Canonical symbols close over a 3-letter base asset per the closed
	// symbol set in domain.AssetOf; the quote currency is whatever remains.
	return str[:3] + "/" + str[3:]
}
