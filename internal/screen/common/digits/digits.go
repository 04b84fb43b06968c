// Package digits turns caller-id strings into the digit-only form that
// patterns are matched against.
package digits

// MaxCountryCodeStrip is the longest leading prefix Candidates will drop.
const MaxCountryCodeStrip = 3

// Normalize keeps the decimal digits of raw in their original order and
// drops everything else: spaces, dashes, parentheses, a leading '+', letters.
// A raw value with no digits normalizes to "".
func Normalize(raw string) string {
	n := 0
	for i := 0; i < len(raw); i++ {
		if isDigit(raw[i]) {
			n++
		}
	}
	if n == len(raw) {
		return raw
	}
	out := make([]byte, 0, n)
	for i := 0; i < len(raw); i++ {
		if isDigit(raw[i]) {
			out = append(out, raw[i])
		}
	}
	return string(out)
}

// Candidates lists the numbers to try for an already normalized number:
// the full number first, then the number with 1..strip leading digits
// removed. strip is clamped to [0, MaxCountryCodeStrip], and a candidate is
// never empty. An empty number yields no candidates.
func Candidates(number string, strip int) []string {
	if number == "" {
		return nil
	}
	if strip < 0 {
		strip = 0
	}
	if strip > MaxCountryCodeStrip {
		strip = MaxCountryCodeStrip
	}
	out := make([]string, 0, strip+1)
	out = append(out, number)
	for i := 1; i <= strip && i < len(number); i++ {
		out = append(out, number[i:])
	}
	return out
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
