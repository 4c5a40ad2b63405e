package accounts

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers without a country prefix
const DefaultPhoneRegion = "US"

const minPasswordLength = 6

var errInvalidPhone = errors.New("must be a valid phone number")

// ValidatePhone checks that the value parses as a valid number for region.
// Empty values pass, combine with validation.Required when needed.
func ValidatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return errInvalidPhone
		}
		return nil
	}
}

// NormalizePhone formats phone as E.164. Empty input returns empty output.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}

	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", err
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errInvalidPhone
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
