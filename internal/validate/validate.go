package validate

import (
	"math/big"
	"strings"
)

// Func reports whether a structurally matched candidate is plausible.
type Func func(s string) bool

var byName = map[string]Func{
	"luhn": Luhn,
	"ssn":  LooksLikeSSN,
	"iban": LooksLikeIBAN,
	"ipv4": LooksLikeIPv4,
}

// Lookup returns the validator registered under name.
func Lookup(name string) (Func, bool) {
	f, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return f, ok
}

// Names lists the registered validator names.
func Names() []string {
	return []string{"iban", "ipv4", "luhn", "ssn"}
}

// LengthBetween returns true if n is within [min,max].
func LengthBetween(s string, min, max int) bool {
	n := len(s)
	return n >= min && n <= max
}

// IsAlphabet returns true if all characters in s are in allowed set.
func IsAlphabet(s, allowed string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(allowed, rune(s[i])) {
			return false
		}
	}
	return true
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// Luhn checks the mod-10 checksum used by payment card numbers. Separators
// are ignored; 12 to 19 digits are required.
func Luhn(s string) bool {
	d := Digits(s)
	if !LengthBetween(d, 12, 19) {
		return false
	}
	sum := 0
	double := false
	for i := len(d) - 1; i >= 0; i-- {
		n := int(d[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

// LooksLikeSSN rejects US social security numbers that are never issued:
// area 000, 666 or 9xx, group 00, serial 0000.
func LooksLikeSSN(s string) bool {
	d := Digits(s)
	if len(d) != 9 {
		return false
	}
	area, group, serial := d[:3], d[3:5], d[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return group != "00" && serial != "0000"
}

// LooksLikeIBAN verifies the ISO 13616 mod-97 checksum.
func LooksLikeIBAN(s string) bool {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if !LengthBetween(s, 15, 34) {
		return false
	}
	const upperAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	if !IsAlphabet(s, upperAlnum) {
		return false
	}
	rearranged := s[4:] + s[:4]
	var num strings.Builder
	for i := 0; i < len(rearranged); i++ {
		c := rearranged[i]
		if c >= 'A' && c <= 'Z' {
			num.WriteString(big.NewInt(int64(c-'A') + 10).String())
			continue
		}
		num.WriteByte(c)
	}
	n, ok := new(big.Int).SetString(num.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

// LooksLikeIPv4 checks four dot-separated octets in 0..255 without leading zeros.
func LooksLikeIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if !LengthBetween(p, 1, 3) || !IsAlphabet(p, "0123456789") {
			return false
		}
		if len(p) > 1 && p[0] == '0' {
			return false
		}
		n := 0
		for i := 0; i < len(p); i++ {
			n = n*10 + int(p[i]-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}
