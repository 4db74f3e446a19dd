package pdf

import "strings"

const fallbackLanguage = "en"

var labels = map[string]map[string]string{
	"en": {
		"invoice":        "Invoice",
		"invoice_number": "Invoice number",
		"invoice_date":   "Invoice date",
		"due_date":       "Due date",
		"order":          "Order",
		"bill_to":        "Bill to",
		"vat_number":     "VAT number",
		"coc_number":     "Chamber of Commerce",
		"iban":           "IBAN",
		"ean":            "EAN",
		"description":    "Description",
		"quantity":       "Qty",
		"unit_price":     "Unit price excl. VAT",
		"vat_rate":       "VAT",
		"line_total":     "Total incl. VAT",
		"subtotal":       "Subtotal excl. VAT",
		"vat_total":      "VAT",
		"total":          "Total",
		"reverse_charge": "VAT reverse charged: VAT is payable by the customer.",
		"notes":          "Notes",
	},
	"nl": {
		"invoice":        "Factuur",
		"invoice_number": "Factuurnummer",
		"invoice_date":   "Factuurdatum",
		"due_date":       "Vervaldatum",
		"order":          "Bestelling",
		"bill_to":        "Factuuradres",
		"vat_number":     "Btw-nummer",
		"coc_number":     "KvK-nummer",
		"iban":           "IBAN",
		"ean":            "EAN",
		"description":    "Omschrijving",
		"quantity":       "Aantal",
		"unit_price":     "Stukprijs excl. btw",
		"vat_rate":       "Btw",
		"line_total":     "Totaal incl. btw",
		"subtotal":       "Subtotaal excl. btw",
		"vat_total":      "Btw",
		"total":          "Totaal",
		"reverse_charge": "Btw verlegd naar de afnemer.",
		"notes":          "Opmerkingen",
	},
	"de": {
		"invoice":        "Rechnung",
		"invoice_number": "Rechnungsnummer",
		"invoice_date":   "Rechnungsdatum",
		"due_date":       "Fällig am",
		"order":          "Bestellung",
		"bill_to":        "Rechnungsadresse",
		"vat_number":     "USt-IdNr.",
		"coc_number":     "Handelsregister",
		"iban":           "IBAN",
		"ean":            "EAN",
		"description":    "Beschreibung",
		"quantity":       "Menge",
		"unit_price":     "Einzelpreis netto",
		"vat_rate":       "MwSt.",
		"line_total":     "Gesamt brutto",
		"subtotal":       "Zwischensumme netto",
		"vat_total":      "MwSt.",
		"total":          "Gesamtbetrag",
		"reverse_charge": "Steuerschuldnerschaft des Leistungsempfängers.",
		"notes":          "Anmerkungen",
	},
	"fr": {
		"invoice":        "Facture",
		"invoice_number": "Numéro de facture",
		"invoice_date":   "Date de facture",
		"due_date":       "Date d'échéance",
		"order":          "Commande",
		"bill_to":        "Facturer à",
		"vat_number":     "N° TVA",
		"coc_number":     "N° d'entreprise",
		"iban":           "IBAN",
		"ean":            "EAN",
		"description":    "Description",
		"quantity":       "Qté",
		"unit_price":     "Prix unitaire HT",
		"vat_rate":       "TVA",
		"line_total":     "Total TTC",
		"subtotal":       "Sous-total HT",
		"vat_total":      "TVA",
		"total":          "Total TTC",
		"reverse_charge": "Autoliquidation : TVA due par le preneur.",
		"notes":          "Remarques",
	},
}

// T returns the label for key in lang, falling back to English and then to the key itself
func T(lang, key string) string {
	if set, ok := labels[strings.ToLower(lang)]; ok {
		if value, ok := set[key]; ok {
			return value
		}
	}
	if value, ok := labels[fallbackLanguage][key]; ok {
		return value
	}
	return key
}

// decimalComma reports whether amounts are written with a decimal comma in lang
func decimalComma(lang string) bool {
	switch strings.ToLower(lang) {
	case "nl", "de", "fr":
		return true
	}
	return false
}
