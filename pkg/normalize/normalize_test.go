package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"dollar sign", "$128.00", "128", true},
		{"hkd prefix", "HKD 1,299.50", "1299.5", true},
		{"hk dollar", "HK$45", "45", true},
		{"euro", "€ 4.99", "4.99", true},
		{"trailing text", "$35.90/each", "35.9", true},
		{"trailing dot", "12. only", "12", true},
		{"no number", "Price on request", "0", false},
		{"empty", "", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePriceOK(tt.in)
			require.Equal(t, tt.ok, ok)
			require.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
			require.True(t, got.Equal(ParsePrice(tt.in)))
		})
	}
}

func TestParsePrice_IdempotentOnOwnOutput(t *testing.T) {
	inputs := []string{"$128.00", "HKD 1,299.50", "0.5", "free", "HK$ 3,000", "99.999"}
	for _, in := range inputs {
		first := ParsePrice(in)
		second := ParsePrice(first.String())
		require.True(t, first.Equal(second), "%q: %s != %s", in, first, second)
	}
}

func TestParsePackSize(t *testing.T) {
	t.Run("simple", func(t *testing.T) {
		ps, ok := ParsePackSize("165 g")
		require.True(t, ok)
		require.True(t, ps.Quantity.Equal(decimal.NewFromInt(165)))
		require.Equal(t, "g", ps.Unit)
	})

	t.Run("with prefix", func(t *testing.T) {
		ps, ok := ParsePackSize("Pack size - 2 kg")
		require.True(t, ok)
		require.True(t, ps.Quantity.Equal(decimal.NewFromInt(2)))
		require.Equal(t, "kg", ps.Unit)
	})

	t.Run("prefix without trailing space", func(t *testing.T) {
		ps, ok := ParsePackSize("Pack size -1.5L")
		require.True(t, ok)
		require.True(t, ps.Quantity.Equal(decimal.RequireFromString("1.5")))
		require.Equal(t, "L", ps.Unit)
	})

	for _, in := range []string{"", "assorted", "g 165", "   "} {
		t.Run("unparsable "+in, func(t *testing.T) {
			ps, ok := ParsePackSize(in)
			require.False(t, ok)
			require.Equal(t, PackSize{}, ps)
		})
	}
}

func TestInStock(t *testing.T) {
	require.False(t, InStock("Jasmine Rice  OUT OF STOCK  add to basket", nil))
	require.False(t, InStock("This item is Out of Stock", nil))
	require.False(t, InStock("currently sold out", nil))
	require.True(t, InStock("Jasmine Rice 5kg $128.00 Add to basket", nil))
	require.True(t, InStock("nothing here", []string{"coming soon"}))
	require.False(t, InStock("Coming Soon to stores", []string{"coming soon"}))
}

func TestDiscount(t *testing.T) {
	d := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	got := Discount(d("128"), decimal.NewNullDecimal(d("160")))
	require.True(t, got.Valid)
	require.True(t, got.Decimal.Equal(d("20")))

	got = Discount(d("9.9"), decimal.NewNullDecimal(d("13.5")))
	require.True(t, got.Valid)
	require.True(t, got.Decimal.Equal(d("26.67")), "got %s", got.Decimal)

	require.False(t, Discount(d("10"), decimal.NullDecimal{}).Valid)
	require.False(t, Discount(d("10"), decimal.NewNullDecimal(d("10"))).Valid)
	require.False(t, Discount(d("10"), decimal.NewNullDecimal(d("8"))).Valid)
}

func TestDiscount_MatchesFormula(t *testing.T) {
	for p := int64(1); p < 200; p += 7 {
		for o := p + 1; o < 250; o += 13 {
			price, orig := decimal.NewFromInt(p), decimal.NewFromInt(o)
			want := orig.Sub(price).Mul(decimal.NewFromInt(100)).Div(orig).Round(2)
			got := Discount(price, decimal.NewNullDecimal(orig))
			require.True(t, got.Valid)
			require.True(t, want.Equal(got.Decimal))
		}
	}
}

func TestTextHelpers(t *testing.T) {
	require.Equal(t, "abc", Truncate("abcdef", 3))
	require.Equal(t, "茉莉", Truncate("茉莉香米", 2))
	require.Equal(t, "short", Truncate("short", 500))

	require.Equal(t, "Jasmine Rice 5kg", CleanText("  Jasmine\n\t Rice   5kg "))
	require.Equal(t, "Fragrant rice. Cook well.", StripHTML("<p>Fragrant rice.</p> <p>Cook <b>well</b>.</p>"))

	require.Equal(t, "https://www.pns.hk/img/a.jpg", AbsoluteURL("https://www.pns.hk", "/img/a.jpg"))
	require.Equal(t, "https://cdn.example.com/a.jpg", AbsoluteURL("https://www.pns.hk", "https://cdn.example.com/a.jpg"))
	require.Equal(t, "https://cdn.example.com/a.jpg", AbsoluteURL("https://www.pns.hk", "//cdn.example.com/a.jpg"))
	require.Equal(t, "", AbsoluteURL("https://www.pns.hk", " "))
}
