package models

import (
	"fmt"
)

const (
	TemplateInvitation  = "invitation"
	TemplateExportReady = "export-ready"
)

var (
	ErrTemplateNotFound = fmt.Errorf("email template not found")
)

/*
EmailTemplate holds Go html/template sources for an email's subject and
body.
*/
type EmailTemplate struct {
	BaseModel

	Name    string
	Subject string
	Body    string
}
