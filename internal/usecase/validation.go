package usecase

import (
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	nonDigit   = regexp.MustCompile(`\D`)
	whitespace = regexp.MustCompile(`\s+`)
	bicPattern = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	ibanShape  = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)
)

// ValidateConvertLeadInput checks everything that must hold before any
// external call is made.
func ValidateConvertLeadInput(input ConvertLeadInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.LeadID) == "" {
		errors = append(errors, ValidationError{"lead_id", "is required"})
	}

	if strings.TrimSpace(input.Plan) == "" {
		errors = append(errors, ValidationError{"plan", "is required"})
	} else if !isValidPlan(input.Plan) {
		errors = append(errors, ValidationError{"plan", "must be SOLO, DUO, TEAM or PREMIUM"})
	}

	if input.AdminEmail != "" {
		if _, err := mail.ParseAddress(input.AdminEmail); err != nil {
			errors = append(errors, ValidationError{"admin_email", "is invalid"})
		}
	}

	if b := input.Billing; b != nil {
		if strings.TrimSpace(b.SIRET) == "" {
			errors = append(errors, ValidationError{"billing.siret", "is required"})
		} else if !isValidSIRET(b.SIRET) {
			errors = append(errors, ValidationError{"billing.siret", "must be 14 digits with a valid checksum"})
		}

		if strings.TrimSpace(b.IBAN) == "" {
			errors = append(errors, ValidationError{"billing.iban", "is required"})
		} else if !isValidIBAN(b.IBAN) {
			errors = append(errors, ValidationError{"billing.iban", "is invalid"})
		}

		if strings.TrimSpace(b.BIC) == "" {
			errors = append(errors, ValidationError{"billing.bic", "is required"})
		} else if !isValidBIC(b.BIC) {
			errors = append(errors, ValidationError{"billing.bic", "must be 8 or 11 characters"})
		}

		if strings.TrimSpace(b.AccountHolder) == "" {
			errors = append(errors, ValidationError{"billing.account_holder", "is required"})
		} else if len(b.AccountHolder) > 70 {
			errors = append(errors, ValidationError{"billing.account_holder", "must not exceed 70 characters"})
		}

		if !b.MandateConsent {
			errors = append(errors, ValidationError{"billing.mandate_consent", "must be given explicitly"})
		}
	}

	return errors
}

func isValidPlan(plan string) bool {
	switch strings.ToUpper(strings.TrimSpace(plan)) {
	case "SOLO", "DUO", "TEAM", "PREMIUM":
		return true
	}
	return false
}

// isValidSIRET: 14 digits, Luhn checksum. La Poste establishments (SIREN
// 356000000) use a digit-sum modulo 5 instead.
func isValidSIRET(siret string) bool {
	cleaned := whitespace.ReplaceAllString(siret, "")
	if len(cleaned) != 14 || nonDigit.MatchString(cleaned) {
		return false
	}
	if strings.HasPrefix(cleaned, "356000000") {
		sum := 0
		for _, r := range cleaned {
			sum += int(r - '0')
		}
		return sum%5 == 0
	}
	return luhnCheck(cleaned)
}

func normalizeIBAN(iban string) string {
	return strings.ToUpper(whitespace.ReplaceAllString(iban, ""))
}

// isValidIBAN applies the ISO 13616 mod-97 check.
func isValidIBAN(iban string) bool {
	s := normalizeIBAN(iban)
	if !ibanShape.MatchString(s) {
		return false
	}
	rearranged := s[4:] + s[:4]

	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		default:
			return false
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}

func normalizeBIC(bic string) string {
	return strings.ToUpper(whitespace.ReplaceAllString(bic, ""))
}

func isValidBIC(bic string) bool {
	return bicPattern.MatchString(normalizeBIC(bic))
}

func luhnCheck(num string) bool {
	sum := 0
	double := false
	for i := len(num) - 1; i >= 0; i-- {
		d := int(num[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
