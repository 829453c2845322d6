package services

import (
	"errors"
	"strings"
	"testing"
)

func pdfWith(markers ...string) []byte {
	return []byte("%PDF-1.7\n" + strings.Join(markers, "\n") + "\n%%EOF")
}

func TestVerifyRejectsUnreadableInput(t *testing.T) {
	svc := NewSignatureService()

	if _, err := svc.Verify(nil); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("empty input: expected ErrInvalidFile, got %v", err)
	}
	if _, err := svc.Verify([]byte("this is not a pdf at all")); !errors.Is(err, ErrInvalidFile) {
		t.Errorf("non-PDF input: expected ErrInvalidFile, got %v", err)
	}
}

func TestVerifyMarkerThreshold(t *testing.T) {
	svc := NewSignatureService()

	tests := []struct {
		name    string
		data    []byte
		signed  bool
		matched int
	}{
		{"no markers", pdfWith("just an ordinary document"), false, 0},
		{"single marker is insufficient", pdfWith("/Type /Sig"), false, 1},
		{"two markers", pdfWith("/Type /Sig", "/ByteRange [0 1234 5678 910]"), true, 2},
		{"icp brasil chain", pdfWith("/Type /Sig", "/ByteRange [0 1 2 3]", "ICP-Brasil"), true, 3},
		{"pkcs7 subfilter", pdfWith("/SubFilter /adbe.pkcs7.detached"), true, 2},
	}

	for _, tt := range tests {
		result, err := svc.Verify(tt.data)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if result.Signed != tt.signed {
			t.Errorf("%s: Signed = %v, want %v (markers: %v)", tt.name, result.Signed, tt.signed, result.MatchedMarkers)
		}
		if len(result.MatchedMarkers) != tt.matched {
			t.Errorf("%s: matched %d markers, want %d (%v)", tt.name, len(result.MatchedMarkers), tt.matched, result.MatchedMarkers)
		}
	}
}

func TestVerifyAbsenceOfMarkersIsNotAnError(t *testing.T) {
	svc := NewSignatureService()

	result, err := svc.Verify(pdfWith("a PDF that mentions the word signature in a form field"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Signed {
		t.Error("expected unsigned verdict")
	}
}

func TestVerifySurvivesBinarySpans(t *testing.T) {
	svc := NewSignatureService()

	// Signature dictionaries embed binary content; every byte value must decode.
	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i)
	}
	data := append(pdfWith("/Type /Sig", "/Contents <"), binary...)

	result, err := svc.Verify(data)
	if err != nil {
		t.Fatalf("unexpected error on binary content: %v", err)
	}
	if !result.Signed {
		t.Errorf("expected signed verdict, matched %v", result.MatchedMarkers)
	}
}
