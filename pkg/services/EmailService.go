package services

import (
	"fmt"

	"github.com/adampresley/adamgokit/email"
)

type EmailServicer interface {
	SendTemplate(templateName, toName, toEmail string, data map[string]any) error
}

type mailSender interface {
	Send(mail email.Mail) error
}

type EmailServiceConfig struct {
	ApiKey          string
	FromEmail       string
	FromName        string
	TemplateService EmailTemplateServicer
}

type EmailService struct {
	fromEmail       string
	fromName        string
	sender          mailSender
	templateService EmailTemplateServicer
}

func NewEmailService(config EmailServiceConfig) EmailService {
	return EmailService{
		fromEmail: config.FromEmail,
		fromName:  config.FromName,
		sender: email.NewResendService(&email.Config{
			ApiKey: config.ApiKey,
		}),
		templateService: config.TemplateService,
	}
}

/*
SendTemplate renders the named template with data and sends it to a
single recipient. toName is available to the template as .toName.
*/
func (s EmailService) SendTemplate(templateName, toName, toEmail string, data map[string]any) error {
	var (
		err     error
		subject string
		body    string
	)

	if data == nil {
		data = map[string]any{}
	}

	data["toName"] = toName

	if subject, body, err = s.templateService.Render(templateName, data); err != nil {
		return fmt.Errorf("error rendering email '%s': %w", templateName, err)
	}

	err = s.sender.Send(email.Mail{
		Body:       body,
		BodyIsHtml: true,
		From: email.EmailAddress{
			Email: s.fromEmail,
			Name:  s.fromName,
		},
		Subject: subject,
		To: []email.EmailAddress{
			{Name: toName, Email: toEmail},
		},
	})

	if err != nil {
		return fmt.Errorf("error sending email '%s' to %s: %w", templateName, toEmail, err)
	}

	return nil
}
