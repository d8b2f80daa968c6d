package domain

import "strings"

// NormalizePhone canonicalizes a Rwandan mobile number to the local
// 07XXXXXXXX form. International prefixes (+250, 250, 00250) are folded
// into the local form; anything else is rejected.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	cleaned = strings.TrimPrefix(cleaned, "+")
	switch {
	case strings.HasPrefix(cleaned, "00250"):
		cleaned = "0" + cleaned[5:]
	case strings.HasPrefix(cleaned, "250"):
		cleaned = "0" + cleaned[3:]
	}

	if len(cleaned) != 10 || !strings.HasPrefix(cleaned, "07") {
		return "", ErrInvalidPhone
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return cleaned, nil
}
