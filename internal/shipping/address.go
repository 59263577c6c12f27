package shipping

import (
	"regexp"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/validation"
)

var (
	zaPostalCode      = regexp.MustCompile(`^[0-9]{4}$`)
	genericPostalCode = regexp.MustCompile(`^[A-Za-z0-9]{3,10}$`)
)

// Address is a delivery destination.
type Address struct {
	Company       string `json:"company,omitempty"`
	StreetAddress string `json:"street_address" validate:"required"`
	LocalArea     string `json:"local_area,omitempty"`
	City          string `json:"city" validate:"required"`
	Zone          string `json:"zone" validate:"required"`
	Country       string `json:"country" validate:"required,iso3166_1_alpha2"`
	PostalCode    string `json:"postal_code" validate:"required"`
}

// Normalize trims every field and upper-cases the country.
func (a Address) Normalize() Address {
	return Address{
		Company:       strings.TrimSpace(a.Company),
		StreetAddress: strings.TrimSpace(a.StreetAddress),
		LocalArea:     strings.TrimSpace(a.LocalArea),
		City:          strings.TrimSpace(a.City),
		Zone:          strings.TrimSpace(a.Zone),
		Country:       strings.ToUpper(strings.TrimSpace(a.Country)),
		PostalCode:    strings.ReplaceAll(strings.TrimSpace(a.PostalCode), " ", ""),
	}
}

// Validate returns INVALID_ADDRESS with a field map when the address is incomplete.
func (a Address) Validate() error {
	normalized := a.Normalize()
	fields, err := validation.Fields(normalized)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidAddress, err, "invalid address")
	}
	if _, bad := fields["postal_code"]; !bad && normalized.PostalCode != "" {
		if msg := PostalCodeProblem(normalized.Country, normalized.PostalCode); msg != "" {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["postal_code"] = msg
		}
	}
	if len(fields) > 0 {
		return validation.Failed(pkgerrors.CodeInvalidAddress, "invalid address", fields)
	}
	return nil
}

// PostalCodeProblem describes why code is not a postal code for country, or
// returns "" when it is acceptable. Country is an upper-case ISO alpha-2 code.
func PostalCodeProblem(country, code string) string {
	if country == "ZA" {
		if !zaPostalCode.MatchString(code) {
			return "must be 4 digits"
		}
		return ""
	}
	if !genericPostalCode.MatchString(code) {
		return "must be 3 to 10 letters or digits"
	}
	return ""
}

func (a Address) toCarrier() carrier.Address {
	n := a.Normalize()
	return carrier.Address{
		Company:       n.Company,
		StreetAddress: n.StreetAddress,
		LocalArea:     n.LocalArea,
		City:          n.City,
		Zone:          n.Zone,
		Country:       n.Country,
		PostalCode:    n.PostalCode,
	}
}
