package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/contratofacil/platform/internal/models"
)

// Template slots. Each slot maps to a clause-emission rule in BuildServiceContract;
// a slot left unset emits its bracketed placeholder, never a dangling token.
type TemplateSlot string

const (
	SlotOwnerName      TemplateSlot = "owner_name"
	SlotOwnerDocument  TemplateSlot = "owner_document"
	SlotOwnerAddress   TemplateSlot = "owner_address"
	SlotClientName     TemplateSlot = "client_name"
	SlotClientDocument TemplateSlot = "client_document"
	SlotClientAddress  TemplateSlot = "client_address"
	SlotAmount         TemplateSlot = "amount"
	SlotStartDate      TemplateSlot = "start_date"
	SlotEndDate        TemplateSlot = "end_date"
)

var slotPlaceholders = map[TemplateSlot]string{
	SlotOwnerName:      "[Nome do Designer]",
	SlotOwnerDocument:  "[CPF]",
	SlotOwnerAddress:   "[Endereço]",
	SlotClientName:     "[Nome do Contratante]",
	SlotClientDocument: "[CPF/CNPJ]",
	SlotClientAddress:  "[Endereço]",
	SlotAmount:         "[Valor]",
	SlotStartDate:      "[Data de Início]",
	SlotEndDate:        "[Data de Término]",
}

// TemplateBuilder assembles a contract body from a fixed set of named slots
// with explicit presence or absence, instead of ad hoc string replacement.
type TemplateBuilder struct {
	slots map[TemplateSlot]string
}

func NewTemplateBuilder() *TemplateBuilder {
	return &TemplateBuilder{slots: make(map[TemplateSlot]string)}
}

// Set records a slot value; empty values leave the slot absent.
func (b *TemplateBuilder) Set(slot TemplateSlot, value string) *TemplateBuilder {
	if strings.TrimSpace(value) != "" {
		b.slots[slot] = strings.TrimSpace(value)
	}
	return b
}

func (b *TemplateBuilder) SetDate(slot TemplateSlot, t *time.Time) *TemplateBuilder {
	if t != nil {
		b.slots[slot] = t.Format("02/01/2006")
	}
	return b
}

func (b *TemplateBuilder) SetAmount(amount float64) *TemplateBuilder {
	if amount > 0 {
		b.slots[SlotAmount] = fmt.Sprintf("R$ %.2f", amount)
	}
	return b
}

// Has reports whether a slot was resolved.
func (b *TemplateBuilder) Has(slot TemplateSlot) bool {
	_, ok := b.slots[slot]
	return ok
}

// value returns the resolved slot or its bracketed placeholder.
func (b *TemplateBuilder) value(slot TemplateSlot) string {
	if v, ok := b.slots[slot]; ok {
		return v
	}
	return slotPlaceholders[slot]
}

// BuildServiceContract emits the default design-services contract body as the
// HTML-ish markup the renderer understands.
func (b *TemplateBuilder) BuildServiceContract() string {
	var sb strings.Builder

	sb.WriteString("<p><strong>CONTRATADO:</strong> ")
	sb.WriteString(b.value(SlotOwnerName))
	sb.WriteString(", inscrito no CPF nº ")
	sb.WriteString(b.value(SlotOwnerDocument))
	sb.WriteString(", residente e domiciliado em ")
	sb.WriteString(b.value(SlotOwnerAddress))
	sb.WriteString(".</p>")

	sb.WriteString("<p><strong>CONTRATANTE:</strong> ")
	sb.WriteString(b.value(SlotClientName))
	sb.WriteString(", inscrito no CPF/CNPJ nº ")
	sb.WriteString(b.value(SlotClientDocument))
	sb.WriteString(", residente e domiciliado em ")
	sb.WriteString(b.value(SlotClientAddress))
	sb.WriteString(".</p>")

	sb.WriteString("<p>As partes acima identificadas têm, entre si, justo e acertado o presente ")
	sb.WriteString("Contrato de Prestação de Serviços de Design, que se regerá pelas cláusulas seguintes.</p>")

	sb.WriteString("<p><strong>CLÁUSULA 1ª - DO OBJETO</strong><br>")
	sb.WriteString("O presente contrato tem como objeto a prestação de serviços de design pelo CONTRATADO ao CONTRATANTE.</p>")

	if b.Has(SlotAmount) {
		sb.WriteString("<p><strong>CLÁUSULA 2ª - DO VALOR</strong><br>")
		sb.WriteString("Pelos serviços prestados, o CONTRATANTE pagará ao CONTRATADO o valor de ")
		sb.WriteString(b.value(SlotAmount))
		sb.WriteString(".</p>")
	}

	if b.Has(SlotStartDate) || b.Has(SlotEndDate) {
		sb.WriteString("<p><strong>CLÁUSULA 3ª - DO PRAZO</strong><br>")
		sb.WriteString("Os serviços serão prestados no período de ")
		sb.WriteString(b.value(SlotStartDate))
		sb.WriteString(" a ")
		sb.WriteString(b.value(SlotEndDate))
		sb.WriteString(".</p>")
	}

	sb.WriteString("<p><strong>CLÁUSULA FINAL - DA ASSINATURA</strong><br>")
	sb.WriteString("As partes concordam que assinaturas eletrônicas realizadas por meio de certificado digital ")
	sb.WriteString("ICP-Brasil têm plena validade jurídica.</p>")

	return sb.String()
}

// BuildContractBody fills the builder from a contract's party fields and the
// owner's profile, then emits the default body. Used when a contract is
// created without explicit content.
func BuildContractBody(contract *models.Contract, owner *models.User) string {
	b := NewTemplateBuilder().
		Set(SlotClientName, contract.ClientName).
		Set(SlotClientDocument, contract.ClientDocument).
		Set(SlotClientAddress, contract.ClientAddress).
		SetAmount(contract.Amount).
		SetDate(SlotStartDate, contract.StartDate).
		SetDate(SlotEndDate, contract.EndDate)
	if owner != nil {
		b.Set(SlotOwnerName, owner.FullName()).
			Set(SlotOwnerDocument, owner.Document).
			Set(SlotOwnerAddress, owner.Address)
	}
	return b.BuildServiceContract()
}
