package domain

import (
	"regexp"
	"strings"
)

type CardBrand string

const (
	BrandVisa       CardBrand = "VISA"
	BrandMastercard CardBrand = "MASTERCARD"
	BrandUnknown    CardBrand = "UNKNOWN"
)

var (
	visaPattern       = regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)
	mastercardPattern = regexp.MustCompile(`^5[1-5][0-9]{14}$`)
)

// ValidateCard checks a card number and reports its brand. Only Visa and
// Mastercard are accepted as payment methods.
func ValidateCard(number string) (bool, CardBrand) {
	clean := strings.ReplaceAll(number, " ", "")
	clean = strings.ReplaceAll(clean, "-", "")

	if clean == "" || !passesLuhn(clean) {
		return false, BrandUnknown
	}

	switch {
	case visaPattern.MatchString(clean):
		return true, BrandVisa
	case mastercardPattern.MatchString(clean):
		return true, BrandMastercard
	}
	return false, BrandUnknown
}

// passesLuhn implements the standard Mod 10 check.
func passesLuhn(number string) bool {
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		n := int(number[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
