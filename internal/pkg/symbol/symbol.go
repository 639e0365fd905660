package symbol

import (
	"strings"
)

// Symbol is a trading pair split into base and quote assets.
type Symbol struct {
	Base  string
	Quote string
}

// Internal renders the pair as BASE/QUOTE.
func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance renders the pair the way the Binance REST API expects it (BASEQUOTE).
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "TUSD", "FDUSD", "BTC", "ETH", "BNB"}

// Parse accepts BTC/USDT, BTCUSDT, btc-usdt and BTC/USDT:USDT.
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			return Symbol{
				Base:  strings.TrimSpace(parts[0]),
				Quote: strings.TrimSpace(parts[1]),
			}
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{
				Base:  s[:len(s)-len(quote)],
				Quote: quote,
			}
		}
	}
	return Symbol{}
}

// Normalize returns BASE/QUOTE or "" when s is not a recognisable pair.
func Normalize(s string) string {
	return Parse(s).Internal()
}

// ToBinance converts any accepted spelling to BASEQUOTE. Unparseable input is
// upper-cased and returned with separators stripped.
func ToBinance(s string) string {
	if sym := Parse(s); sym.Base != "" {
		return sym.Binance()
	}
	raw := strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("/", "", "-", "", "_", "").Replace(raw)
}

func IsValid(s string) bool {
	sym := Parse(s)
	return sym.Base != "" && sym.Quote != ""
}
