package payfast

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
)

// Sign returns the lower-case hex MD5 of the ordered parameter string, with
// the passphrase appended when configured.
func Sign(fields Fields, passphrase string) string {
	payload := fields.ParamString()
	if pass := strings.TrimSpace(passphrase); pass != "" {
		payload += "&passphrase=" + url.QueryEscape(pass)
	}
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// SignInto computes the signature and stores it as the final field.
func SignInto(fields *Fields, passphrase string) string {
	signature := Sign(*fields, passphrase)
	fields.Set(FieldSignature, signature)
	return signature
}
