package model

import "testing"

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		method, in, want string
	}{
		{ContactEmail, "  Bob@Example.COM ", "bob@example.com"},
		{ContactPhone, "+386 40 123-456", "+38640123456"},
		{ContactPhone, "+1 (555) 010.2030", "+15550102030"},
	}
	for _, tt := range tests {
		if got := NormalizeContact(tt.method, tt.in); got != tt.want {
			t.Errorf("NormalizeContact(%s, %q) = %q, want %q", tt.method, tt.in, got, tt.want)
		}
	}
}

func TestTransferIsParty(t *testing.T) {
	tr := &Transfer{FromUID: "alice"}

	if !tr.IsParty("alice") {
		t.Error("sender should be a party")
	}
	if tr.IsParty("") {
		t.Error("empty uid must never be a party, even with an unresolved recipient")
	}

	tr.ToUID = "bob"
	if !tr.IsParty("bob") || tr.IsParty("mallory") {
		t.Error("unexpected party check result")
	}
}
