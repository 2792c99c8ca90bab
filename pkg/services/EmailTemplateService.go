package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/google/uuid"
	"github.com/rfberaldo/sqlz"
)

type EmailTemplateServicer interface {
	GetAll() ([]models.EmailTemplate, error)
	GetByName(name string) (*models.EmailTemplate, error)
	Save(tmpl *models.EmailTemplate) error
	Delete(id string) error
	Render(name string, data map[string]any) (string, string, error)
}

type EmailTemplateServiceConfig struct {
	DB *sqlz.DB
}

type EmailTemplateService struct {
	db *sqlz.DB
}

func NewEmailTemplateService(config EmailTemplateServiceConfig) EmailTemplateService {
	return EmailTemplateService{
		db: config.DB,
	}
}

func (s EmailTemplateService) GetAll() ([]models.EmailTemplate, error) {
	result := []models.EmailTemplate{}

	sql := `
SELECT
   t.id
   , t.created_at
   , t.updated_at
   , t.deleted_at
   , t.name
   , t.subject
   , t.body
FROM email_templates AS t
WHERE 1=1
   AND t.deleted_at IS NULL
ORDER BY t.name
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.Query(ctx, &result, sql); err != nil && !sqlz.IsNotFound(err) {
		return result, fmt.Errorf("error querying for email templates: %w", err)
	}

	return result, nil
}

func (s EmailTemplateService) GetByName(name string) (*models.EmailTemplate, error) {
	result := &models.EmailTemplate{}

	sql := `
SELECT
   t.id
   , t.created_at
   , t.updated_at
   , t.deleted_at
   , t.name
   , t.subject
   , t.body
FROM email_templates AS t
WHERE 1=1
   AND t.deleted_at IS NULL
   AND t.name=?
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.db.QueryRow(ctx, result, sql, name); err != nil {
		if sqlz.IsNotFound(err) {
			return nil, models.ErrTemplateNotFound
		}

		return nil, fmt.Errorf("error querying for email template '%s': %w", name, err)
	}

	return result, nil
}

/*
Save validates both templates before writing. Templates are upserted by
name, so saving an existing name replaces it.
*/
func (s EmailTemplateService) Save(tmpl *models.EmailTemplate) error {
	var (
		err error
	)

	tmpl.Name = strings.TrimSpace(tmpl.Name)

	if tmpl.Name == "" {
		return fmt.Errorf("email template name is required")
	}

	if _, _, err = RenderTemplate(*tmpl, nil); err != nil {
		return err
	}

	now := time.Now().UTC()
	tmpl.UpdatedAt = now

	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
		tmpl.CreatedAt = now
	}

	sql := `
INSERT INTO email_templates (id, created_at, updated_at, name, subject, body)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
   updated_at=excluded.updated_at
   , subject=excluded.subject
   , body=excluded.body
   , deleted_at=NULL
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err = s.db.Exec(ctx, sql, tmpl.ID, tmpl.CreatedAt, tmpl.UpdatedAt, tmpl.Name, tmpl.Subject, tmpl.Body); err != nil {
		return fmt.Errorf("error saving email template '%s': %w", tmpl.Name, err)
	}

	return nil
}

func (s EmailTemplateService) Delete(id string) error {
	sql := `
UPDATE email_templates SET deleted_at=? WHERE id=? AND deleted_at IS NULL
`

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if _, err := s.db.Exec(ctx, sql, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("error deleting email template %s: %w", id, err)
	}

	return nil
}

func (s EmailTemplateService) Render(name string, data map[string]any) (string, string, error) {
	var (
		err  error
		tmpl *models.EmailTemplate
	)

	if tmpl, err = s.GetByName(name); err != nil {
		return "", "", err
	}

	return RenderTemplate(*tmpl, data)
}

/*
RenderTemplate executes the subject as plain text and the body as HTML.
Missing keys do not fail rendering.
*/
func RenderTemplate(tmpl models.EmailTemplate, data map[string]any) (string, string, error) {
	var (
		err     error
		subject strings.Builder
		body    strings.Builder
	)

	subjectTmpl, err := texttemplate.New("subject").Option("missingkey=zero").Parse(tmpl.Subject)

	if err != nil {
		return "", "", fmt.Errorf("error parsing subject of email template '%s': %w", tmpl.Name, err)
	}

	bodyTmpl, err := template.New("body").Option("missingkey=zero").Parse(tmpl.Body)

	if err != nil {
		return "", "", fmt.Errorf("error parsing body of email template '%s': %w", tmpl.Name, err)
	}

	if data == nil {
		data = map[string]any{}
	}

	if err = subjectTmpl.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("error rendering subject of email template '%s': %w", tmpl.Name, err)
	}

	if err = bodyTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("error rendering body of email template '%s': %w", tmpl.Name, err)
	}

	return strings.TrimSpace(subject.String()), body.String(), nil
}
