package services

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/smtp"
	"time"

	"github.com/contratofacil/platform/internal/config"
	"github.com/contratofacil/platform/internal/models"
	"github.com/google/uuid"
)

// UserLookup resolves contract owners for completion notices.
type UserLookup interface {
	GetUserByID(id uuid.UUID) (*models.User, error)
}

type EmailService struct {
	config *config.Config
	users  UserLookup
}

func NewEmailService(cfg *config.Config, users UserLookup) *EmailService {
	return &EmailService{config: cfg, users: users}
}

// EmailData contains common email template data
type EmailData struct {
	AppName     string
	AppURL      string
	UserName    string
	Subject     string
	Content     template.HTML
	ActionURL   string
	ActionLabel string
}

// BaseEmailTemplate is the base HTML email template
const BaseEmailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #0f766e 0%, #134e4a 100%); color: white; padding: 30px; text-align: center; border-radius: 8px 8px 0 0; }
        .content { background: #f9f9f9; padding: 30px; border-radius: 0 0 8px 8px; }
        .button { display: inline-block; background: linear-gradient(135deg, #0f766e 0%, #134e4a 100%); color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; margin: 20px 0; }
        .footer { text-align: center; color: #888; font-size: 12px; margin-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.AppName}}</h1>
        </div>
        <div class="content">
            <p>Olá {{.UserName}},</p>
            {{.Content}}
            {{if .ActionURL}}
            <p style="text-align: center;">
                <a href="{{.ActionURL}}" class="button">{{.ActionLabel}}</a>
            </p>
            {{end}}
        </div>
        <div class="footer">
            <p>&copy; {{.AppName}}. Todos os direitos reservados.</p>
            <p>Esta é uma mensagem automática. Por favor, não responda.</p>
        </div>
    </div>
</body>
</html>
`

// sendEmail sends an email over SMTP with a bounded dial timeout. Without an
// SMTP host configured the message is logged instead, for development.
func (s *EmailService) sendEmail(to, subject, body string) error {
	if s.config.SMTPHost == "" {
		log.Printf("\n=== EMAIL ===\nTo: %s\nSubject: %s\nBody: %s\n=============\n", to, subject, body)
		return nil
	}

	from := s.config.FromEmail
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n",
		from, to, subject)
	msg := []byte(headers + body)

	dialer := net.Dialer{Timeout: time.Duration(s.config.SMTPTimeout) * time.Second}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(s.tlsConfig()); err != nil {
			return err
		}
	}
	if s.config.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// tlsConfig names the SMTP host so certificate verification succeeds during
// the STARTTLS handshake; a nil config would fail it unconditionally.
func (s *EmailService) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.config.SMTPHost}
}

// renderEmail renders an email using the base template
func (s *EmailService) renderEmail(data EmailData) (string, error) {
	data.AppName = s.config.AppName
	data.AppURL = s.config.AppURL

	tmpl, err := template.New("email").Parse(BaseEmailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// SendSignatureInvitation emails the counter-party after the owner signs:
// a link to download the partially-signed document, a link to the external
// signature portal, and a link back to the upload-completion page.
func (s *EmailService) SendSignatureInvitation(contract *models.Contract) error {
	documentURL := fmt.Sprintf("%s/api/public/contracts/%s/document", s.config.AppURL, contract.ID)
	uploadURL := fmt.Sprintf("%s/assinar/%s", s.config.AppURL, contract.ID)

	content := fmt.Sprintf(`
		<p>Você foi convidado a assinar o contrato <strong>%s</strong>.</p>
		<p>Como proceder:</p>
		<ol>
			<li><a href="%s">Baixe o documento parcialmente assinado</a>;</li>
			<li>Assine o PDF com seu certificado digital no <a href="%s">portal de assinatura</a>;</li>
			<li>Envie o documento assinado pela página abaixo.</li>
		</ol>
	`, template.HTMLEscapeString(contract.Title), documentURL, s.config.SignaturePortalURL)

	name := contract.ClientName
	if name == "" {
		name = contract.ClientEmail
	}

	data := EmailData{
		UserName:    name,
		Subject:     fmt.Sprintf("Contrato aguardando sua assinatura: %s", contract.Title),
		Content:     template.HTML(content),
		ActionURL:   uploadURL,
		ActionLabel: "Enviar documento assinado",
	}

	body, err := s.renderEmail(data)
	if err != nil {
		return err
	}

	return s.sendEmail(contract.ClientEmail, data.Subject, body)
}

// SendCompletionNotice tells the owner both parties have signed.
func (s *EmailService) SendCompletionNotice(contract *models.Contract) error {
	owner, err := s.users.GetUserByID(contract.UserID)
	if err != nil {
		return err
	}

	content := fmt.Sprintf(`
		<p>O contrato <strong>%s</strong> foi assinado por ambas as partes.</p>
		<p>O documento final já está disponível para download no seu painel.</p>
	`, template.HTMLEscapeString(contract.Title))

	data := EmailData{
		UserName:    owner.FirstName,
		Subject:     fmt.Sprintf("Contrato concluído: %s", contract.Title),
		Content:     template.HTML(content),
		ActionURL:   fmt.Sprintf("%s/contratos/%s", s.config.AppURL, contract.ID),
		ActionLabel: "Ver contrato",
	}

	body, err := s.renderEmail(data)
	if err != nil {
		return err
	}

	return s.sendEmail(owner.Email, data.Subject, body)
}
