package models

import (
	"regexp"
	"strings"
	"unicode"
)

// euMemberStates holds the ISO 3166-1 alpha-2 codes of the 27 EU member states
var euMemberStates = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// vatPrefixCountry maps VAT number prefixes that differ from the ISO country code
var vatPrefixCountry = map[string]string{
	"EL": "GR",
}

var vatNumberPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z]+$`)

// IsEUCountry reports whether the ISO country code belongs to an EU member state
func IsEUCountry(countryCode string) bool {
	_, ok := euMemberStates[strings.ToUpper(strings.TrimSpace(countryCode))]
	return ok
}

// EUCountryCodes returns the member state codes in no particular order
func EUCountryCodes() []string {
	codes := make([]string, 0, len(euMemberStates))
	for code := range euMemberStates {
		codes = append(codes, code)
	}
	return codes
}

// VATNumberValidation is the structured result of a VAT number format check
type VATNumberValidation struct {
	Input       string `json:"input"`
	Normalized  string `json:"normalized"`
	CountryCode string `json:"countryCode,omitempty"`
	Valid       bool   `json:"valid"`
	Reason      string `json:"reason,omitempty"`
}

// ValidateVATNumber checks the format of an EU VAT identification number.
// It never fails; problems are reported through the Valid and Reason fields.
func ValidateVATNumber(raw string) VATNumberValidation {
	normalized := strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))

	result := VATNumberValidation{Input: raw, Normalized: normalized}

	if normalized == "" {
		result.Reason = "VAT number is empty"
		return result
	}
	if !vatNumberPattern.MatchString(normalized) {
		result.Reason = "VAT number must start with a two-letter country prefix followed by letters or digits"
		return result
	}

	prefix := normalized[:2]
	country := prefix
	if mapped, ok := vatPrefixCountry[prefix]; ok {
		country = mapped
	}
	if !IsEUCountry(country) {
		result.Reason = "VAT number prefix " + prefix + " is not an EU member state"
		return result
	}

	result.CountryCode = country
	result.Valid = true
	return result
}
