// Package proof computes transfer proof hashes and checks the secp256k1
// signatures parties submit over them.
package proof

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/erazemk/perutnina/internal/model"
)

// Data is the set of transfer fields a party signs when verifying a transfer.
type Data struct {
	TransferID string   `json:"transferId"`
	FowlID     string   `json:"fowlId"`
	FromUID    string   `json:"fromUid"`
	ToUID      string   `json:"toUid"`
	Timestamp  int64    `json:"timestamp"`
	ProofURLs  []string `json:"proofUrls"`
}

// FromTransfer returns the proof data for a stored transfer.
func FromTransfer(t *model.Transfer) Data {
	return Data{
		TransferID: t.ID,
		FowlID:     t.FowlID,
		FromUID:    t.FromUID,
		ToUID:      t.ToUID,
		Timestamp:  t.Timestamp,
		ProofURLs:  t.ProofURLs,
	}
}

// Hash returns the SHA3-256 digest of the canonical encoding of d.
// Every variable-length field is prefixed with its length, so no two
// distinct values share an encoding. Proof URL order is significant.
func (d Data) Hash() []byte {
	h := sha3.New256()

	writeString(h, d.TransferID)
	writeString(h, d.FowlID)
	writeString(h, d.FromUID)
	writeString(h, d.ToUID)

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(d.Timestamp))
	h.Write(ts[:])

	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(d.ProofURLs)))
	h.Write(n[:])
	for _, u := range d.ProofURLs {
		writeString(h, u)
	}

	return h.Sum(nil)
}

// HashHex returns Hash as a hex string.
func (d Data) HashHex() string {
	return hex.EncodeToString(d.Hash())
}

func writeString(h io.Writer, s string) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}
