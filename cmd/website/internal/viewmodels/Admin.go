package viewmodels

import (
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Admin struct {
	BaseViewModel

	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type GalleryRequest struct {
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	Description  string    `json:"description"`
	EventDate    time.Time `json:"eventDate"`
	CoverPhotoID string    `json:"coverPhotoId"`
	AllowUploads bool      `json:"allowUploads"`
}

type ChapterRequest struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type EmailTemplate struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EmailTemplateRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type PreviewRequest struct {
	Data map[string]any `json:"data"`
}

type Preview struct {
	BaseViewModel

	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type InviteRequest struct {
	Recipients []Recipient `json:"recipients"`
}

type InviteResult struct {
	BaseViewModel

	Sent   int      `json:"sent"`
	Failed []string `json:"failed"`
}

type ExportStarted struct {
	BaseViewModel

	FileName string `json:"fileName"`
}

func NewAdmin(admin *models.Admin) Admin {
	return Admin{
		ID:    admin.ID,
		Email: admin.Email,
		Name:  admin.Name,
	}
}

func NewEmailTemplate(tmpl models.EmailTemplate) EmailTemplate {
	return EmailTemplate{
		ID:        tmpl.ID,
		Name:      tmpl.Name,
		Subject:   tmpl.Subject,
		Body:      tmpl.Body,
		UpdatedAt: tmpl.UpdatedAt,
	}
}
