package normalize

import "strings"

var DefaultUnavailable = []string{
	"out of stock",
	"sold out",
	"unavailable",
	"not available",
}

// InStock scans the whole page text, not a stock widget, so unrelated copy
// containing an indicator marks the product unavailable. Indicators must be
// lower case; nil means DefaultUnavailable.
func InStock(pageText string, indicators []string) bool {
	if indicators == nil {
		indicators = DefaultUnavailable
	}

	lower := strings.ToLower(pageText)
	for _, indicator := range indicators {
		if strings.Contains(lower, indicator) {
			return false
		}
	}
	return true
}
