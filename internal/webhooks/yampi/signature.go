// Package yampi authenticates checkout webhooks signed by the Yampi platform.
package yampi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the canonical body.
const SignatureHeader = "X-Yampi-Hmac-Sha256"

var (
	// ErrMissingSecret indicates no shared secret is configured.
	ErrMissingSecret = errors.New("missing webhook secret")
	// ErrMissingSignature indicates the request carried no signature.
	ErrMissingSignature = errors.New("missing signature")
	// ErrInvalidSignature indicates the signature does not match the body.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidPayload indicates the body could not be parsed for signing.
	ErrInvalidPayload = errors.New("invalid payload")
)

// Verifier checks webhook signatures against one shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a verifier. An empty secret rejects every request.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(strings.TrimSpace(secret))}
}

// Verify validates signature against the raw, untouched request body.
func (v *Verifier) Verify(body []byte, signature string) error {
	if v == nil || len(v.secret) == 0 {
		return ErrMissingSecret
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}

	expected, err := sign(body, v.secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the signature the sender would attach to body.
func Sign(body []byte, secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return "", ErrMissingSecret
	}
	return sign(body, []byte(secret))
}

func sign(body []byte, secret []byte) (string, error) {
	canonical, err := Canonicalize(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
