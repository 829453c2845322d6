package services

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// signatureMarkers are literal substrings characteristic of PDF cryptographic
// signature dictionaries and ICP-Brasil certificate chains. A single match is
// not enough: form-field metadata can mention signatures without any actual
// signature dictionary being present.
var signatureMarkers = []string{
	"/Type /Sig",
	"/Type/Sig",
	"/ByteRange",
	"/Contents <",
	"/SubFilter",
	"adbe.pkcs7.detached",
	"ETSI.CAdES.detached",
	"ICP-Brasil",
}

// minSignatureMarkers is the number of distinct markers required before a file
// is considered signed.
const minSignatureMarkers = 2

// SignatureVerification is the transient verdict for one upload attempt.
type SignatureVerification struct {
	Signed         bool     `json:"signed"`
	MatchedMarkers []string `json:"matched_markers"`
}

// SignatureService decides whether an uploaded file plausibly carries a
// digital signature. It is a heuristic over signature-dictionary markers, not
// cryptographic validation: certificate chains and document integrity are not
// checked. It inspects content only and never trusts the client-declared file
// type.
type SignatureService struct{}

func NewSignatureService() *SignatureService {
	return &SignatureService{}
}

// Verify scans the file for signature markers. The bytes are decoded as
// Latin-1 before scanning: signature dictionaries embed binary spans inside
// otherwise-ASCII structure, and a multi-byte decoding would corrupt or reject
// those spans and hide the markers. Absence of markers is not an error; it
// simply yields Signed == false.
func (s *SignatureService) Verify(data []byte) (*SignatureVerification, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidFile)
	}
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF")) {
		return nil, fmt.Errorf("%w: not a PDF document", ErrInvalidFile)
	}

	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	text := string(decoded)

	var matched []string
	for _, marker := range signatureMarkers {
		if strings.Contains(text, marker) {
			matched = append(matched, marker)
		}
	}

	return &SignatureVerification{
		Signed:         len(matched) >= minSignatureMarkers,
		MatchedMarkers: matched,
	}, nil
}
