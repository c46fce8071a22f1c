package utils

import "strings"

// NormalizeLanguage maps a requested language to one we send messages in.
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case "es", "it":
		return lang
	default:
		return "en"
	}
}

// StatusTranslation renders a reservation status in lang.
func StatusTranslation(status, lang string) string {
	switch lang {
	case "es":
		switch status {
		case "pending":
			return "pendiente"
		case "confirmed":
			return "confirmada"
		case "cancelled", "canceled":
			return "cancelada"
		}
	case "it":
		switch status {
		case "pending":
			return "in attesa"
		case "confirmed":
			return "confermata"
		case "cancelled", "canceled":
			return "annullata"
		}
	}
	// Default: English
	return status
}
