package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/contratofacil/platform/internal/models"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// placeholderRules repair "undefined" tokens left in stored content by
// incomplete form data. A legal document must never read "undefined"; each
// unresolved slot is replaced by its bracketed placeholder instead. Context
// rules run first, the generic rule last.
var placeholderRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)CPF(?:/CNPJ)?\s*(?:n[ºo]\s*)?undefined`), "CPF nº [CPF]"},
	{regexp.MustCompile(`(?i)(residente\s+(?:e\s+domiciliad[oa]\s+)?em)\s+undefined`), "$1 [Endereço]"},
	{regexp.MustCompile(`(?i)undefined`), "[Nome do Designer]"},
}

func sanitizePlaceholders(content string) string {
	for _, rule := range placeholderRules {
		content = rule.re.ReplaceAllString(content, rule.repl)
	}
	return content
}

// DocumentService renders an unsigned contract draft into a paginated PDF
// from its stored content and party metadata. Output is deterministic for a
// given contract: the only embedded date is the stored creation date.
type DocumentService struct{}

func NewDocumentService() *DocumentService {
	return &DocumentService{}
}

const (
	pageWidth  = 190.0 // printable width in mm on A4 with default margins
	lineHeight = 6.0
	bodySize   = 11.0
)

// RenderContractPDF produces the draft PDF: centered title, a metadata block
// (absent party lines omitted, creation date always present), then the body
// content with bold spans and line breaks preserved and plain text
// word-wrapped to the printable width. Pagination is handled per emitted
// line, so a single paragraph can span a page boundary.
func (s *DocumentService) RenderContractPDF(contract *models.Contract) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(contract.CreatedAt)
	pdf.SetCompression(false)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Title
	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(pageWidth, 8, tr(strings.ToUpper(contract.Title)), "", "C", false)
	pdf.Ln(6)

	// Metadata block
	pdf.SetFont("Arial", "", 10)
	if contract.ClientName != "" {
		pdf.CellFormat(pageWidth, 5, tr("Contratante: "+contract.ClientName), "", 1, "L", false, 0, "")
	}
	if contract.ClientEmail != "" {
		pdf.CellFormat(pageWidth, 5, tr("E-mail: "+contract.ClientEmail), "", 1, "L", false, 0, "")
	}
	if contract.ClientDocument != "" {
		pdf.CellFormat(pageWidth, 5, tr("CPF/CNPJ: "+contract.ClientDocument), "", 1, "L", false, 0, "")
	}
	if contract.ClientAddress != "" {
		pdf.CellFormat(pageWidth, 5, tr("Endereço: "+contract.ClientAddress), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(pageWidth, 5, tr("Data de criação: "+contract.CreatedAt.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Body
	pdf.SetFont("Arial", "", bodySize)
	body := sanitizePlaceholders(contract.Content)
	if err := s.writeMarkup(pdf, tr, body); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render contract pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// writeMarkup walks the HTML-ish body recursively, preserving bold emphasis
// and treating paragraph and line-break markers as vertical advances.
func (s *DocumentService) writeMarkup(pdf *gofpdf.Fpdf, tr func(string) string, content string) error {
	nodes, err := html.ParseFragment(strings.NewReader(content), bodyContext())
	if err != nil {
		return fmt.Errorf("failed to parse contract content: %w", err)
	}
	for _, node := range nodes {
		s.writeNode(pdf, tr, node, false)
	}
	return nil
}

func bodyContext() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
}

func (s *DocumentService) writeNode(pdf *gofpdf.Fpdf, tr func(string) string, node *html.Node, bold bool) {
	switch node.Type {
	case html.TextNode:
		text := strings.Join(strings.Fields(node.Data), " ")
		if text == "" {
			return
		}
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, bodySize)
		// Write flows inline, wrapping at the right margin and advancing to a
		// new page per emitted line when the printable height is exhausted.
		pdf.Write(lineHeight, tr(text+" "))
		return
	case html.ElementNode:
		switch node.Data {
		case "br":
			pdf.Ln(lineHeight)
			return
		case "p", "div":
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				s.writeNode(pdf, tr, child, bold)
			}
			pdf.Ln(lineHeight)
			pdf.Ln(lineHeight / 2)
			return
		case "strong", "b":
			bold = true
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		s.writeNode(pdf, tr, child, bold)
	}
}
