package checkout

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/orderapi"
	"github.com/angelmondragon/storefront-backend/pkg/validation"
)

// Form is the customer-supplied checkout details.
type Form struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,phone"`
	Company       string `json:"company,omitempty" validate:"max=100"`
	StreetAddress string `json:"street_address" validate:"required"`
	LocalArea     string `json:"local_area,omitempty"`
	City          string `json:"city" validate:"required"`
	Zone          string `json:"zone" validate:"required"`
	PostalCode    string `json:"postal_code" validate:"required"`
	Country       string `json:"country" validate:"required,iso3166_1_alpha2"`
	CustomerNote  string `json:"customer_note,omitempty" validate:"max=1000"`
}

func (f Form) normalize() Form {
	out := Form{
		FirstName:     strings.TrimSpace(f.FirstName),
		LastName:      strings.TrimSpace(f.LastName),
		Email:         strings.TrimSpace(f.Email),
		Phone:         strings.TrimSpace(f.Phone),
		Company:       strings.TrimSpace(f.Company),
		StreetAddress: strings.TrimSpace(f.StreetAddress),
		LocalArea:     strings.TrimSpace(f.LocalArea),
		City:          strings.TrimSpace(f.City),
		Zone:          strings.TrimSpace(f.Zone),
		PostalCode:    strings.TrimSpace(f.PostalCode),
		Country:       strings.ToUpper(strings.TrimSpace(f.Country)),
		CustomerNote:  strings.TrimSpace(f.CustomerNote),
	}
	return out
}

// Validate returns VALIDATION_ERROR carrying a field to message map. The postal
// code must satisfy the same format rules the rate resolver applies.
func (f Form) Validate() error {
	normalized := f.normalize()
	fields, err := validation.Fields(normalized)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "checkout form is invalid")
	}
	if _, bad := fields["postal_code"]; !bad && normalized.PostalCode != "" {
		addr := f.Address().Normalize()
		if msg := shipping.PostalCodeProblem(addr.Country, addr.PostalCode); msg != "" {
			if fields == nil {
				fields = map[string]string{}
			}
			fields["postal_code"] = msg
		}
	}
	if len(fields) > 0 {
		return validation.Failed(pkgerrors.CodeValidation, "checkout form is invalid", fields)
	}
	return nil
}

// Address returns the delivery address captured by the form.
func (f Form) Address() shipping.Address {
	n := f.normalize()
	return shipping.Address{
		Company:       n.Company,
		StreetAddress: n.StreetAddress,
		LocalArea:     n.LocalArea,
		City:          n.City,
		Zone:          n.Zone,
		Country:       n.Country,
		PostalCode:    n.PostalCode,
	}
}

// Customer returns the payer details captured by the form.
func (f Form) Customer() payment.Customer {
	n := f.normalize()
	return payment.Customer{FirstName: n.FirstName, LastName: n.LastName, Email: n.Email, Phone: n.Phone}
}

func (f Form) backendAddress(withContact bool) orderapi.Address {
	n := f.normalize()
	addr := orderapi.Address{
		FirstName: n.FirstName,
		LastName:  n.LastName,
		Company:   n.Company,
		Address1:  n.StreetAddress,
		Address2:  n.LocalArea,
		City:      n.City,
		State:     n.Zone,
		Postcode:  n.PostalCode,
		Country:   n.Country,
	}
	if withContact {
		addr.Email = n.Email
		addr.Phone = n.Phone
	}
	return addr
}
