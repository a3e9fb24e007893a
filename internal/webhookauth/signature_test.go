package webhookauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"project_id":"p1","event_name":"x"}`)
	ts := "2026-02-08T12:00:00Z"
	sig := ComputeSignature("s", ts, body)

	tests := []struct {
		name      string
		secret    string
		timestamp string
		body      []byte
		signature string
		want      bool
	}{
		{name: "valid", secret: "s", timestamp: ts, body: body, signature: sig, want: true},
		{name: "github style prefix", secret: "s", timestamp: ts, body: body, signature: "sha256=" + sig, want: true},
		{name: "trailing space in body", secret: "s", timestamp: ts, body: append(append([]byte{}, body...), ' '), signature: sig, want: false},
		{name: "changed timestamp", secret: "s", timestamp: "2026-02-08T12:00:01Z", body: body, signature: sig, want: false},
		{name: "wrong secret", secret: "t", timestamp: ts, body: body, signature: sig, want: false},
		{name: "empty secret", secret: "", timestamp: ts, body: body, signature: ComputeSignature("", ts, body), want: false},
		{name: "empty signature", secret: "s", timestamp: ts, body: body, signature: "", want: false},
		{name: "not hex", secret: "s", timestamp: ts, body: body, signature: strings.Repeat("z", len(sig)), want: false},
		{name: "truncated", secret: "s", timestamp: ts, body: body, signature: sig[:len(sig)-2], want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, VerifySignature(tc.secret, tc.timestamp, tc.body, tc.signature))
		})
	}
}

func TestVerifySignature_AnySingleByteFlipFails(t *testing.T) {
	body := []byte(`{"project_id":"p1","event_name":"x"}`)
	ts := "2026-02-08T12:00:00Z"
	sig := ComputeSignature("s", ts, body)

	for i := range body {
		tampered := append([]byte{}, body...)
		tampered[i] ^= 0x01
		require.False(t, VerifySignature("s", ts, tampered, sig), "byte %d", i)
	}

	for i := range ts {
		tampered := []byte(ts)
		tampered[i] ^= 0x01
		require.False(t, VerifySignature("s", string(tampered), body, sig), "timestamp byte %d", i)
	}
}
