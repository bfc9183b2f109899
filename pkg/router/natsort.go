package router

import "sort"

// NaturalLess compares two strings treating runs of digits as numbers,
// so "2.png" sorts before "10.png". Ties on numeric value fall back to
// the shorter digit run first ("01" before "1" is not required; byte
// order decides).
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		if isDigit(ca) && isDigit(cb) {
			ia, na := scanDigits(a, i)
			jb, nb := scanDigits(b, j)
			if na != nb {
				return na < nb
			}
			// Equal value; keep scanning, but remember byte order as a
			// tiebreaker via the raw segments.
			if a[i:ia] != b[j:jb] {
				return a[i:ia] < b[j:jb]
			}
			i, j = ia, jb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

// SortNatural sorts names in natural order, in place.
func SortNatural(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return NaturalLess(names[i], names[j])
	})
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// scanDigits returns the index past the digit run starting at i and the
// run's numeric value. Values are capped rather than overflowed.
func scanDigits(s string, i int) (int, uint64) {
	var n uint64
	for i < len(s) && isDigit(s[i]) {
		if n < 1<<57 {
			n = n*10 + uint64(s[i]-'0')
		}
		i++
	}
	return i, n
}
