package models

import "testing"

func TestContractSignatureState(t *testing.T) {
	tests := []struct {
		name       string
		signedPath string
		clientPath string
		want       SignatureState
	}{
		{"no artifacts", "", "", SignatureNone},
		{"owner signed only", "contracts/x/partial.pdf", "", SignatureOwnerSigned},
		{"both signed", "contracts/x/partial.pdf", "contracts/x/final.pdf", SignatureFullySigned},
	}

	for _, tt := range tests {
		contract := &Contract{
			SignedFilePath:       tt.signedPath,
			ClientSignedFilePath: tt.clientPath,
		}
		if got := contract.SignatureState(); got != tt.want {
			t.Errorf("%s: SignatureState() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []ContractStatus{ContractStatusSigned, ContractStatusExpired, ContractStatusCanceled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	open := []ContractStatus{ContractStatusDraft, ContractStatusActive, ContractStatusPendingSignature}
	for _, s := range open {
		if s.IsTerminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestStatusValidOverrideTarget(t *testing.T) {
	valid := []ContractStatus{ContractStatusDraft, ContractStatusActive, ContractStatusExpired, ContractStatusCanceled}
	for _, s := range valid {
		if !s.ValidOverrideTarget() {
			t.Errorf("expected %s to be a valid override target", s)
		}
	}

	// signed and pending_signature are only reached through signature uploads
	invalid := []ContractStatus{ContractStatusSigned, ContractStatusPendingSignature, ContractStatus("bogus")}
	for _, s := range invalid {
		if s.ValidOverrideTarget() {
			t.Errorf("expected %s not to be a valid override target", s)
		}
	}
}
