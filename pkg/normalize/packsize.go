package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var packSizePrefixes = []string{"Pack size - ", "Pack size -"}

var packSizePattern = regexp.MustCompile(`^([\d.]+)\s*([a-zA-Z]+)`)

type PackSize struct {
	Quantity decimal.Decimal
	Unit     string
}

// ParsePackSize reads "<number><unit>" text such as "165 g" or "Pack size - 2 kg".
// Compact multi-pack forms are left to the adapter that knows them.
func ParsePackSize(text string) (PackSize, bool) {
	for _, prefix := range packSizePrefixes {
		text = strings.ReplaceAll(text, prefix, "")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return PackSize{}, false
	}

	m := packSizePattern.FindStringSubmatch(text)
	if m == nil {
		return PackSize{}, false
	}

	qty, err := decimal.NewFromString(strings.TrimSuffix(m[1], "."))
	if err != nil {
		return PackSize{}, false
	}
	return PackSize{Quantity: qty, Unit: m[2]}, true
}
