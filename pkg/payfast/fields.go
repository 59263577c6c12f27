package payfast

import (
	"encoding/json"
	"net/url"
	"strings"
)

// Field names used when building a payment request.
const (
	FieldMerchantID      = "merchant_id"
	FieldMerchantKey     = "merchant_key"
	FieldReturnURL       = "return_url"
	FieldCancelURL       = "cancel_url"
	FieldNotifyURL       = "notify_url"
	FieldNameFirst       = "name_first"
	FieldNameLast        = "name_last"
	FieldEmailAddress    = "email_address"
	FieldCellNumber      = "cell_number"
	FieldPaymentID       = "m_payment_id"
	FieldAmount          = "amount"
	FieldItemName        = "item_name"
	FieldItemDescription = "item_description"
	FieldCustomStr1      = "custom_str1"
	FieldSignature       = "signature"
)

// Field is a single name/value pair of a gateway form.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Fields keeps gateway form values in assignment order. The gateway hashes
// the fields in the order they are posted, so order is part of the contract.
type Fields struct {
	list []Field
}

// Set assigns value to name. Re-assigning keeps the original position.
func (f *Fields) Set(name, value string) {
	for i := range f.list {
		if f.list[i].Name == name {
			f.list[i].Value = value
			return
		}
	}
	f.list = append(f.list, Field{Name: name, Value: value})
}

// Get returns the value for name and whether it was assigned.
func (f Fields) Get(name string) (string, bool) {
	for _, field := range f.list {
		if field.Name == name {
			return field.Value, true
		}
	}
	return "", false
}

// List returns a copy of the fields in assignment order.
func (f Fields) List() []Field {
	out := make([]Field, len(f.list))
	copy(out, f.list)
	return out
}

func (f Fields) Len() int {
	return len(f.list)
}

// Without returns a copy of the fields minus the named entry.
func (f Fields) Without(name string) Fields {
	out := Fields{list: make([]Field, 0, len(f.list))}
	for _, field := range f.list {
		if field.Name != name {
			out.list = append(out.list, field)
		}
	}
	return out
}

// Values converts the fields into url.Values for form posting. Ordering is lost.
func (f Fields) Values() url.Values {
	values := url.Values{}
	for _, field := range f.list {
		values.Set(field.Name, field.Value)
	}
	return values
}

// MarshalJSON renders the ordered pair list.
func (f Fields) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.List())
}

// UnmarshalJSON restores the ordered pair list.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var list []Field
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	f.list = nil
	for _, field := range list {
		f.Set(field.Name, field.Value)
	}
	return nil
}

// ParamString builds the escaped "name=value&..." string the signature is
// computed over. Empty values and the signature field are skipped.
func (f Fields) ParamString() string {
	var b strings.Builder
	for _, field := range f.list {
		if field.Name == FieldSignature {
			continue
		}
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(field.Name)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(value))
	}
	return b.String()
}
