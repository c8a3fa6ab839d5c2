package property

import "slices"

// BestMatch picks the single candidate naming the same property as named.
// A candidate matches exactly when its street tokens, state and postcode all
// agree after Core. When no exact match exists, house numbers are ignored and
// the street name alone is compared. Zero or several matches at the deciding
// tier return ok == false.
func BestMatch(named string, candidates []string) (string, bool) {
	target := Split(named)
	if len(target.Street) == 0 {
		return "", false
	}

	var exact, loose []string
	for _, c := range candidates {
		parts := Split(c)
		if !parts.SameLocality(target) || len(parts.Street) == 0 {
			continue
		}
		if slices.Equal(parts.Street, target.Street) {
			exact = append(exact, c)
			continue
		}
		if name := parts.StreetName(); len(name) > 0 && slices.Equal(name, target.StreetName()) {
			loose = append(loose, c)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], true
	case len(exact) > 1:
		return "", false
	case len(loose) == 1:
		return loose[0], true
	default:
		return "", false
	}
}
