// Package webhook verifies signed identity-provider deliveries.
//
// The provider signs each delivery with HMAC-SHA256 over
// "{id}.{timestamp}.{body}" using a shared secret, and sends the result
// base64-encoded in the signature header as one or more space-separated
// "v1,<signature>" entries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/nijaru/yt-enrich/errors"
)

// Delivery headers.
const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

const secretPrefix = "whsec_"

// defaultTolerance bounds the accepted clock skew on the timestamp header.
const defaultTolerance = 5 * time.Minute

// Verifier authenticates a webhook delivery from its headers and raw body.
type Verifier interface {
	Verify(id, timestamp, signature string, body []byte) error
}

type HMACVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier builds a verifier from the provider's endpoint secret. The
// conventional "whsec_" prefix is stripped and the remainder is
// base64-decoded; a secret that does not decode is used as raw bytes.
func NewVerifier(secret string) *HMACVerifier {
	trimmed := strings.TrimPrefix(secret, secretPrefix)
	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		key = []byte(trimmed)
	}
	return &HMACVerifier{
		secret:    key,
		tolerance: defaultTolerance,
		now:       time.Now,
	}
}

func (v *HMACVerifier) Verify(id, timestamp, signature string, body []byte) error {
	const op = "HMACVerifier.Verify"

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.VerificationFailed(op, err)
	}
	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return errors.VerificationFailed(op, nil)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(signature) {
		version, encoded, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		candidate, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return nil
		}
	}

	return errors.VerificationFailed(op, nil)
}
