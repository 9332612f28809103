package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Stripped before scanning, longest first so "HKD" is not left as "D".
var CurrencyTokens = []string{"HKD", "HK$", "HK", "$", "€", "£"}

var priceToken = regexp.MustCompile(`\d+\.?\d*`)

// ParsePrice returns the first decimal number in text after removing thousands
// separators and currency tokens. Text without a number yields zero.
func ParsePrice(text string) decimal.Decimal {
	price, _ := ParsePriceOK(text)
	return price
}

// ParsePriceOK is ParsePrice that also reports whether a number was found, so
// callers can tell a zero default from a listed price of zero.
func ParsePriceOK(text string) (decimal.Decimal, bool) {
	if text == "" {
		return decimal.Zero, false
	}

	cleaned := strings.ReplaceAll(text, ",", "")
	for _, token := range CurrencyTokens {
		cleaned = strings.ReplaceAll(cleaned, token, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	match := priceToken.FindString(cleaned)
	if match == "" {
		return decimal.Zero, false
	}

	// "12." is a valid match but not a valid decimal literal
	match = strings.TrimSuffix(match, ".")
	price, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}
