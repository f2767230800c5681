package fields

import "strings"

// NormalizeGender maps anything starting with m/f to Male/Female.
// Other values pass through unchanged.
func NormalizeGender(v string) string {
	switch t := strings.TrimSpace(v); {
	case strings.HasPrefix(t, "m"), strings.HasPrefix(t, "M"):
		return "Male"
	case strings.HasPrefix(t, "f"), strings.HasPrefix(t, "F"):
		return "Female"
	}
	return v
}

// NormalizeBloodGroup strips whitespace and uppercases ("ab -" -> "AB-").
func NormalizeBloodGroup(v string) string {
	return strings.ToUpper(strings.Join(strings.Fields(v), ""))
}

// Normalize applies value canonicalization after parsing.
func Normalize(p *Parsed) {
	if v, ok := p.Get(Gender); ok {
		p.rewrite(Gender, NormalizeGender(v))
	}
	if v, ok := p.Get(BloodGroup); ok {
		p.rewrite(BloodGroup, NormalizeBloodGroup(v))
	}
}
