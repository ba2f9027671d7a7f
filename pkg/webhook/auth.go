package webhook

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
)

// Signature headers set by the platform on every webhook request.
const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

// ParsePublicKey decodes the application's hex-encoded Ed25519 public key.
func ParsePublicKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("public key is not valid hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// Verify checks the request signature over timestamp bytes followed by the
// raw body, with no delimiter. It fails closed: an empty or malformed
// timestamp or signature is a verification failure, never an error path
// that could be mistaken for success.
func Verify(pub ed25519.PublicKey, timestamp string, body []byte, sigHex string) bool {
	if len(pub) != ed25519.PublicKeySize || timestamp == "" || sigHex == "" {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	message := make([]byte, 0, len(timestamp)+len(body))
	message = append(message, timestamp...)
	message = append(message, body...)
	return ed25519.Verify(pub, message, sig)
}
