package payfast

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorFields() Fields {
	var f Fields
	f.Set(FieldMerchantID, "10000100")
	f.Set(FieldMerchantKey, "46f0cd694581a")
	f.Set(FieldReturnURL, "https://shop.example/return")
	f.Set(FieldNameFirst, "Jane")
	f.Set(FieldNameLast, "")
	f.Set(FieldEmailAddress, "jane@example.com")
	f.Set(FieldPaymentID, "b7f3c2a0-1d2e-4f5a-9b8c-7d6e5f4a3b2c")
	f.Set(FieldAmount, "250.00")
	f.Set(FieldItemName, "Order #1001")
	return f
}

func TestParamStringKeepsOrderAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	want := "merchant_id=10000100&merchant_key=46f0cd694581a&return_url=https%3A%2F%2Fshop.example%2Freturn" +
		"&name_first=Jane&email_address=jane%40example.com&m_payment_id=b7f3c2a0-1d2e-4f5a-9b8c-7d6e5f4a3b2c" +
		"&amount=250.00&item_name=Order+%231001"
	assert.Equal(t, want, vectorFields().ParamString())
}

func TestSignFixedVectors(t *testing.T) {
	t.Parallel()

	f := vectorFields()
	assert.Equal(t, "6dbf4eb4d802f110deef5c31e296fadb", Sign(f, ""))
	assert.Equal(t, "14c716801fae094cb2b2ab324cf49fdb", Sign(f, "jt7NOE43FZPn"))
}

func TestSignIsDeterministicAndIgnoresSignatureField(t *testing.T) {
	t.Parallel()

	f := vectorFields()
	first := SignInto(&f, "")
	second := Sign(f, "")
	assert.Equal(t, first, second)

	value, ok := f.Get(FieldSignature)
	require.True(t, ok)
	assert.Equal(t, first, value)
	assert.Equal(t, FieldSignature, f.List()[f.Len()-1].Name)
}

func TestAlphabeticalOrderChangesSignature(t *testing.T) {
	t.Parallel()

	ordered := vectorFields()
	var sorted Fields
	for _, name := range []string{
		FieldAmount, FieldEmailAddress, FieldItemName, FieldPaymentID,
		FieldMerchantID, FieldMerchantKey, FieldNameFirst, FieldReturnURL,
	} {
		value, _ := ordered.Get(name)
		sorted.Set(name, value)
	}

	assert.Equal(t, "a80da1c01a604c463612336be86c0904", Sign(sorted, ""))
	assert.NotEqual(t, Sign(ordered, ""), Sign(sorted, ""))
}

func TestSetKeepsFirstPosition(t *testing.T) {
	t.Parallel()

	var f Fields
	f.Set("a", "1")
	f.Set("b", "2")
	f.Set("a", "3")

	list := f.List()
	require.Len(t, list, 2)
	assert.Equal(t, Field{Name: "a", Value: "3"}, list[0])
	assert.Equal(t, 1, f.Without("a").Len())
}

func TestFieldsJSONPreservesOrder(t *testing.T) {
	t.Parallel()

	f := vectorFields()
	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var decoded Fields
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, f.List(), decoded.List())
	assert.Equal(t, Sign(f, ""), Sign(decoded, ""))
}

func TestParseCallback(t *testing.T) {
	t.Parallel()

	values := url.Values{
		"payment_status": {"COMPLETE"},
		"amount_gross":   {"250.00"},
		"email_address":  {"jane@example.com"},
		"custom_str1":    {"1001"},
		"pf_payment_id":  {"1089250"},
	}
	cb := ParseCallback(values)
	assert.True(t, cb.Valid)
	assert.True(t, cb.Completed())
	assert.Equal(t, "1001", cb.OrderID)
	assert.Equal(t, enums.PaymentStatusComplete, cb.Status)
	assert.Equal(t, "1089250", cb.PaymentID)
}

func TestParseCallbackReportsMissingFields(t *testing.T) {
	t.Parallel()

	cb := ParseCallback(url.Values{"payment_status": {"cancelled"}, "custom_str1": {"7"}})
	assert.False(t, cb.Valid)
	assert.False(t, cb.Completed())
	assert.Equal(t, []string{CallbackAmountGross, CallbackEmail}, cb.Missing)
	assert.Equal(t, enums.PaymentStatusCancelled, cb.Status)
	assert.Equal(t, "7", cb.OrderID)
}
