package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

func TestRecordDefaults(t *testing.T) {
	rel, err := Record("nike", RawRecord{
		"sku":  " abc123 ",
		"name": "  Air Max 95  ",
	})
	require.NoError(t, err)
	require.Equal(t, "ABC123", rel.SKU)
	require.Equal(t, "Air Max 95", rel.Name)
	require.Equal(t, "nike", rel.RetailerID)
	require.Equal(t, "Unknown", rel.Brand)
	require.Equal(t, releases.StatusUnknown, rel.Status)
	require.Nil(t, rel.Price)
	require.Nil(t, rel.ReleaseDate)
	require.Nil(t, rel.LiveStock)
}

func TestRecordDeterministicID(t *testing.T) {
	a, err := Record("nike", RawRecord{"sku": "DZ5485-612"})
	require.NoError(t, err)
	b, err := Record("nike", RawRecord{"sku": "dz5485-612", "name": "different"})
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID)

	c, err := Record("footlocker", RawRecord{"sku": "DZ5485-612"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, c.ID)
}

func TestRecordRejectsEmptyIdentity(t *testing.T) {
	_, err := Record("nike", RawRecord{"price": 120.0})
	require.ErrorIs(t, err, ErrNoIdentity)

	// blank name after trimming is no identity either
	_, err = Record("nike", RawRecord{"name": "   "})
	require.ErrorIs(t, err, ErrNoIdentity)
}

func TestRecordNameFallbackIdentity(t *testing.T) {
	// without a SKU, identity comes from the normalized name, so two
	// different products from one retailer must not share an ID
	a, err := Record("kith", RawRecord{"name": "Air Max 95 OG"})
	require.NoError(t, err)
	b, err := Record("kith", RawRecord{"name": "Clyde All-Pro"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	// punctuation and casing variants of one name group together
	c, err := Record("kith", RawRecord{"name": "air-max  95 og!"})
	require.NoError(t, err)
	require.Equal(t, a.ID, c.ID)

	// a SKU, when present, wins over the name
	d, err := Record("kith", RawRecord{"sku": "DM9104-001", "name": "Air Max 95 OG"})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, d.ID)
}

func TestRecordNameDefaultsWhenSKUPresent(t *testing.T) {
	rel, err := Record("nike", RawRecord{"sku": "AAA", "name": "  "})
	require.NoError(t, err)
	require.Equal(t, "Unknown", rel.Name)
}

func TestBrand(t *testing.T) {
	cases := map[string]string{
		"nike":        "Nike",
		"NIKE":        "Nike",
		"new balance": "New Balance",
		"Hoka":        "Hoka", // unmapped passes through
		"":            "Unknown",
		"  ":          "Unknown",
	}
	for raw, want := range cases {
		require.Equal(t, want, Brand(raw), "brand %q", raw)
	}
}

func TestPrice(t *testing.T) {
	require.Nil(t, Price(nil))
	require.Nil(t, Price("not a price"))
	require.Nil(t, Price(-10.0))
	require.Nil(t, Price(0))

	p := Price("$1,299.99")
	require.NotNil(t, p)
	require.InDelta(t, 1299.99, *p, 0.001)

	p = Price(120)
	require.NotNil(t, p)
	require.InDelta(t, 120, *p, 0.001)
}

func TestDate(t *testing.T) {
	require.Nil(t, Date(nil))
	require.Nil(t, Date("soonish"))

	d := Date("2025-11-20T09:00:00Z")
	require.NotNil(t, d)
	require.Equal(t, time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC), *d)

	d = Date("2025-11-20")
	require.NotNil(t, d)
	require.Equal(t, 2025, d.Year())
}

func TestStatusVocabulary(t *testing.T) {
	cases := map[string]releases.Status{
		"available":   releases.StatusLive,
		"LIVE":        releases.StatusLive,
		"upcoming":    releases.StatusUpcoming,
		"announced":   releases.StatusUpcoming,
		"sold out":    releases.StatusSoldOut,
		"raffle-open": releases.StatusRaffleOpen,
		"restocked":   releases.StatusRestocked,
		"whatever":    releases.StatusUnknown,
		"":            releases.StatusUnknown,
	}
	for raw, want := range cases {
		require.Equal(t, want, releases.ParseStatus(raw), "status %q", raw)
	}
}

func TestStockShapes(t *testing.T) {
	// richly shaped sizes
	m := Stock(map[string]any{
		"US 9":  map[string]any{"total": 10.0, "available": 3.0},
		"US 10": 5.0,
	})
	require.Equal(t, releases.StockMap{
		"US 9":  {Total: 10, Available: 3},
		"US 10": {Total: 5, Available: 5},
	}, m)

	require.Nil(t, Stock(nil))
	require.Nil(t, Stock("12"))
	require.Nil(t, Stock(map[string]any{}))
}

func TestRecordMalformedFieldsDegrade(t *testing.T) {
	rel, err := Record("nike", RawRecord{
		"sku":          "ABC123",
		"name":         "Dunk Low",
		"price":        "free?",
		"status":       "something else",
		"release_date": "next tuesday",
		"stock":        42, // not a map
	})
	require.NoError(t, err)
	require.Nil(t, rel.Price)
	require.Equal(t, releases.StatusUnknown, rel.Status)
	require.Nil(t, rel.ReleaseDate)
	require.Nil(t, rel.LiveStock)
}
