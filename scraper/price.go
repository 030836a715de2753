package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var priceRun = regexp.MustCompile(`\d[\d.,]*`)

// zeroDecimalCurrencies have no minor unit: the digits in the markup are
// already whole currency units.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
}

// ParsePrice extracts a numeric amount from raw price text such as
// "¥12,800" or "149,95 €". Separators are treated as formatting only: for
// zero-decimal currencies the digit run is the amount, for everything else
// the digit run is in minor units (cents) and divided by 100. That holds
// for bare integers too — "€12" is 12 cents (0.12), not 12 euros; decimal
// currencies are expected to render both price components in the markup.
// Returns false when no digits are present.
func ParsePrice(text, currency string) (float64, bool) {
	match := priceRun.FindString(strings.TrimSpace(text))
	if match == "" {
		return 0, false
	}

	digits := strings.NewReplacer(",", "", ".", "").Replace(match)
	value, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}

	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return value, true
	}
	return value / 100, true
}
