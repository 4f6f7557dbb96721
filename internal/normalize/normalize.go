// Package normalize derives canonical lookup keys from raw record fields.
package normalize

import (
	"strings"

	"github.com/smith-pharmacy/catalog-enrich/internal/model"
)

// Barcode maps a raw barcode field (UPC/EAN/GTIN in any formatting) to a
// canonical lookup key by keeping only decimal digits in their original
// order. Inputs with no digits normalize to model.NoKey. Deterministic and
// total: equal raw values always produce equal keys.
func Barcode(raw string) model.LookupKey {
	var b strings.Builder
	b.Grow(len(raw))
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return model.NoKey
	}
	return model.LookupKey(b.String())
}
