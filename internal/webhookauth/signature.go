package webhookauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// signedPayload is what the HMAC covers: the declared timestamp, a dot, and
// the raw body bytes exactly as received.
func signedPayload(timestamp string, body []byte) []byte {
	payload := make([]byte, 0, len(timestamp)+1+len(body))
	payload = append(payload, timestamp...)
	payload = append(payload, '.')
	payload = append(payload, body...)
	return payload
}

// ComputeSignature returns the hex HMAC-SHA256 of timestamp + "." + body.
func ComputeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(signedPayload(timestamp, body))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the valid hex HMAC for
// timestamp and body under secret. A "sha256=" prefix is accepted.
//
// The comparison is constant time over equal-length inputs. It returns only
// a boolean; malformed hex, an empty secret or a length mismatch are all
// plain failures.
func VerifySignature(secret, timestamp string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	actual, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(signedPayload(timestamp, body))
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(expected, actual) == 1
}
