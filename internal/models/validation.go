package models

import (
	"regexp"
	"strings"
)

var (
	countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)
	currencyRegex    = regexp.MustCompile(`^[A-Z]{3}$`)
	hexColorRegex    = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)
)

// SupportedLanguages lists the invoice document languages
var SupportedLanguages = []string{"nl", "en", "de", "fr"}

// IsValidCountryCode checks for an upper-case ISO 3166-1 alpha-2 code
func IsValidCountryCode(code string) bool {
	return countryCodeRegex.MatchString(code)
}

// IsValidCurrency checks for an upper-case ISO 4217 code
func IsValidCurrency(code string) bool {
	return currencyRegex.MatchString(code)
}

// IsValidHexColor checks for #RGB or #RRGGBB
func IsValidHexColor(color string) bool {
	return hexColorRegex.MatchString(color)
}

// IsSupportedLanguage reports whether invoices can be rendered in the language
func IsSupportedLanguage(lang string) bool {
	for _, supported := range SupportedLanguages {
		if strings.EqualFold(lang, supported) {
			return true
		}
	}
	return false
}
