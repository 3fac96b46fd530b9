package model

import (
	"regexp"
	"strings"
)

// Transfer is one ownership change request. It is created PENDING and
// resolved exactly once to VERIFIED or REJECTED. Records are never deleted.
type Transfer struct {
	ID            string   `json:"id"`
	FowlID        string   `json:"fowlId"`
	FromUID       string   `json:"fromUid"`
	ToUID         string   `json:"toUid"`
	Recipient     string   `json:"recipient"`
	ContactMethod string   `json:"contactMethod"`
	Status        string   `json:"status"`
	Timestamp     int64    `json:"timestamp"`
	Verified      bool     `json:"verified"`
	Signature     string   `json:"signature,omitempty"`
	ProofURLs     []string `json:"proofUrls"`
	Reason        string   `json:"reason,omitempty"`
	ResolvedAt    int64    `json:"resolvedAt,omitempty"`
}

// Transfer statuses.
const (
	TransferPending  = "PENDING"
	TransferVerified = "VERIFIED"
	TransferRejected = "REJECTED"
)

// Contact methods used to reach the recipient.
const (
	ContactEmail = "EMAIL"
	ContactPhone = "PHONE"
)

// IsTerminal reports whether the status can no longer change.
func IsTerminal(status string) bool {
	return status == TransferVerified || status == TransferRejected
}

// IsParty reports whether uid is the sender or the resolved recipient.
func (t *Transfer) IsParty(uid string) bool {
	if uid == "" {
		return false
	}
	return uid == t.FromUID || uid == t.ToUID
}

// PhonePattern matches a normalized phone number in international format.
var PhonePattern = regexp.MustCompile(`^\+[0-9]{7,15}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizeContact returns the canonical form of an email address or phone
// number so that stored and submitted values compare equal.
func NormalizeContact(method, value string) string {
	value = strings.TrimSpace(value)
	switch method {
	case ContactEmail:
		return strings.ToLower(value)
	case ContactPhone:
		return phoneSeparators.Replace(value)
	}
	return value
}
