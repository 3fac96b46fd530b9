package proof

import (
	"bytes"
	"testing"
)

func sample() Data {
	return Data{
		TransferID: "T1",
		FowlID:     "F1",
		FromUID:    "alice",
		ToUID:      "bob",
		Timestamp:  1700000000000,
		ProofURLs:  []string{"https://img/1.jpg", "https://img/2.jpg"},
	}
}

func TestHashDeterministic(t *testing.T) {
	a, b := sample().Hash(), sample().Hash()
	if !bytes.Equal(a, b) {
		t.Error("expected equal hashes for equal data")
	}
	if len(a) != 32 {
		t.Errorf("expected 32-byte hash, got %d", len(a))
	}
}

func TestHashSensitivity(t *testing.T) {
	base := sample().Hash()

	tests := []struct {
		name   string
		mutate func(*Data)
	}{
		{"transferId", func(d *Data) { d.TransferID = "T2" }},
		{"fowlId", func(d *Data) { d.FowlID = "F2" }},
		{"fromUid", func(d *Data) { d.FromUID = "mallory" }},
		{"toUid", func(d *Data) { d.ToUID = "mallory" }},
		{"timestamp", func(d *Data) { d.Timestamp++ }},
		{"proofUrls changed", func(d *Data) { d.ProofURLs[0] = "https://img/evil.jpg" }},
		{"proofUrls reordered", func(d *Data) { d.ProofURLs[0], d.ProofURLs[1] = d.ProofURLs[1], d.ProofURLs[0] }},
		{"proofUrls dropped", func(d *Data) { d.ProofURLs = d.ProofURLs[:1] }},
		{"field boundary", func(d *Data) { d.FromUID, d.ToUID = "aliceb", "ob" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sample()
			tt.mutate(&d)
			if bytes.Equal(base, d.Hash()) {
				t.Errorf("changing %s did not change the hash", tt.name)
			}
		})
	}
}

func TestNilAndEmptyURLsHashEqual(t *testing.T) {
	a, b := sample(), sample()
	a.ProofURLs = nil
	b.ProofURLs = []string{}
	if a.HashHex() != b.HashHex() {
		t.Error("expected nil and empty proof urls to hash equally")
	}
}

func TestSignAndVerify(t *testing.T) {
	privHex, pubHex, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	priv, err := ParsePrivateKey(privHex)
	if err != nil {
		t.Fatalf("ParsePrivateKey: %v", err)
	}

	hash := sample().Hash()
	sig := Sign(priv, hash)

	if !Verify(pubHex, sig, hash) {
		t.Fatal("expected valid signature")
	}

	other := sample()
	other.Timestamp++
	if Verify(pubHex, sig, other.Hash()) {
		t.Error("signature verified against a different hash")
	}

	_, otherPub, _ := GenerateKey()
	if Verify(otherPub, sig, hash) {
		t.Error("signature verified against a different key")
	}

	for _, bad := range []string{"", "zz", "3045", "deadbeef"} {
		if Verify(pubHex, bad, hash) {
			t.Errorf("malformed signature %q verified", bad)
		}
	}
	if Verify("", sig, hash) {
		t.Error("empty public key verified")
	}
}
