package proof

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// GenerateKey creates a new secp256k1 key pair and returns the private key
// and the compressed public key, both hex encoded.
func GenerateKey() (privHex, pubHex string, err error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}
	return hex.EncodeToString(priv.Serialize()), hex.EncodeToString(priv.PubKey().SerializeCompressed()), nil
}

// ParsePrivateKey decodes a hex encoded secp256k1 private key.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}
	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(b))
	}
	return secp256k1.PrivKeyFromBytes(b), nil
}

// ParsePublicKey decodes a hex encoded secp256k1 public key in compressed
// or uncompressed form.
func ParsePublicKey(s string) (*secp256k1.PublicKey, error) {
	b, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}
	pub, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}
	return pub, nil
}

// Sign signs hash with priv and returns the hex encoded DER signature.
func Sign(priv *secp256k1.PrivateKey, hash []byte) string {
	return hex.EncodeToString(ecdsa.Sign(priv, hash).Serialize())
}

// Verify reports whether sigHex is a valid signature of hash by the holder
// of pubHex.
func Verify(pubHex, sigHex string, hash []byte) bool {
	pub, err := ParsePublicKey(pubHex)
	if err != nil {
		return false
	}

	raw, err := decodeHex(sigHex)
	if err != nil {
		return false
	}

	sig, err := ecdsa.ParseDERSignature(raw)
	if err != nil {
		return false
	}

	return sig.Verify(hash, pub)
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	return hex.DecodeString(s)
}
