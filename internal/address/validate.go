package address

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
)

// Input is the structural shape of an address. The same rule set guards the
// HTTP boundary and the checkout service, so an address that passes one
// passes the other.
type Input struct {
	Type       string  `json:"type" validate:"required,oneof=billing shipping both"`
	FullName   string  `json:"full_name" validate:"required,min=1,max=120"`
	Line1      string  `json:"line1" validate:"required,min=1,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,min=1,max=100"`
	Region     string  `json:"region" validate:"required,min=1,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,min=3,max=20"`
	Country    string  `json:"country" validate:"required,iso3166_1_alpha2"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,e164"`
	IsDefault  bool    `json:"is_default"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateInput applies the structural rule set. The returned error lists
// every failing field.
func ValidateInput(in Input) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if ok := asValidationErrors(err, &verrs); !ok {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address")
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fieldProblem(fe))
	}
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("invalid address: %s", strings.Join(problems, "; ")))
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	*target = verrs
	return true
}

func fieldProblem(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "iso3166_1_alpha2":
		return fmt.Sprintf("%s must be an ISO 3166-1 alpha-2 country code", field)
	case "e164":
		return fmt.Sprintf("%s must be an E.164 phone number", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s length is out of bounds", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
