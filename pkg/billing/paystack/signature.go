package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mihaimyh/gopremium/pkg/billing"
)

// SignatureHeader carries the hex HMAC-SHA512 of the raw request body
const SignatureHeader = "X-Paystack-Signature"

var (
	// ErrMissingSignature is returned when the request has no signature header
	ErrMissingSignature = fmt.Errorf("%w: missing %s header", billing.ErrInvalidWebhookSignature, SignatureHeader)

	// ErrInvalidSignature is reported when the signature does not match the body
	ErrInvalidSignature = fmt.Errorf("%w: digest mismatch", billing.ErrInvalidWebhookSignature)

	// ErrVerificationFailed is returned when the digest cannot be computed,
	// for example because the secret is unavailable
	ErrVerificationFailed = errors.New("signature verification failed")
)

// Sign returns the lowercase hex HMAC-SHA512 of body under secret.
func Sign(body, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("%w: %w", ErrVerificationFailed, billing.ErrSecretUnavailable)
	}
	mac := hmac.New(sha512.New, secret)
	if _, err := mac.Write(body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify reports whether headerSignature is the signature of rawBody.
//
// rawBody must be the request body exactly as received; hashing a re-encoded
// form breaks legitimately signed payloads. A mismatch is (false, nil).
// A missing header returns ErrMissingSignature and a digest failure returns
// an error wrapping ErrVerificationFailed.
func Verify(rawBody []byte, headerSignature string, secret []byte) (bool, error) {
	headerSignature = strings.TrimSpace(headerSignature)
	if headerSignature == "" {
		return false, ErrMissingSignature
	}
	expected, err := Sign(rawBody, secret)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(expected), []byte(headerSignature)), nil
}
