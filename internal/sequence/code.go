package sequence

import (
	"fmt"
	"strings"
	"unicode"
)

// FallbackAbbreviation prefixes codes for scopes with no usable abbreviation.
const FallbackAbbreviation = "GEN"

const abbreviationLength = 3

// Abbreviate reduces a jurisdiction abbreviation to the three-letter code
// prefix: ASCII letters only, upper-cased, truncated to three. Fewer than
// three usable letters yields FallbackAbbreviation.
func Abbreviate(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() == abbreviationLength {
			break
		}
	}
	if b.Len() < abbreviationLength {
		return FallbackAbbreviation
	}
	return b.String()
}

// FormatCode renders a tracking code such as DEL0001012026. Sequences past
// 9999 widen the numeric part instead of wrapping.
func FormatCode(abbreviation string, seq uint64, month, year int) string {
	return fmt.Sprintf("%s%04d%02d%04d", abbreviation, seq, month, year)
}
