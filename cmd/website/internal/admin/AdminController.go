package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/sessions"
	internalmodels "github.com/adampresley/weddingshare/cmd/website/internal/models"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/basepath"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
)

const (
	minCodeLength = 4
)

type AdminControllerConfig struct {
	AdminService         services.AdminServicer
	BasePath             string
	EmailService         services.EmailServicer
	EmailTemplateService services.EmailTemplateServicer
	ExportService        services.ExportServicer
	GalleryService       services.GalleryServicer
	MediaURLs            viewmodels.MediaURLs
	PhotoService         services.PhotoServicer
	PublicURL            string
	SessionService       sessions.Session[*internalmodels.AdminSession]
}

type AdminController struct {
	adminService         services.AdminServicer
	basePath             string
	emailService         services.EmailServicer
	emailTemplateService services.EmailTemplateServicer
	exportService        services.ExportServicer
	galleryService       services.GalleryServicer
	mediaURLs            viewmodels.MediaURLs
	photoService         services.PhotoServicer
	publicURL            string
	sessionService       sessions.Session[*internalmodels.AdminSession]
}

func NewAdminController(config AdminControllerConfig) AdminController {
	return AdminController{
		adminService:         config.AdminService,
		basePath:             config.BasePath,
		emailService:         config.EmailService,
		emailTemplateService: config.EmailTemplateService,
		exportService:        config.ExportService,
		galleryService:       config.GalleryService,
		mediaURLs:            config.MediaURLs,
		photoService:         config.PhotoService,
		publicURL:            config.PublicURL,
		sessionService:       config.SessionService,
	}
}

/*
POST /api/admin/login
*/
func (c AdminController) LoginAction(w http.ResponseWriter, r *http.Request) {
	var (
		err   error
		req   viewmodels.LoginRequest
		admin *models.Admin
	)

	if err = viewmodels.ReadJSON(r, &req); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please provide an email and password.")
		return
	}

	if admin, err = c.adminService.Authenticate(req.Email, req.Password); err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			slog.Info("failed admin login", "email", req.Email, "ip", r.RemoteAddr)
			viewmodels.WriteMessage(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}

		slog.Error("error authenticating admin", "error", err, "email", req.Email)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	session := &internalmodels.AdminSession{
		AdminID: admin.ID,
		Email:   admin.Email,
	}

	if err = c.sessionService.Set(r, session); err != nil {
		slog.Error("error setting admin session", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	if err = c.sessionService.Save(w, r); err != nil {
		slog.Error("error saving admin session", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	slog.Info("admin logged in", "adminID", admin.ID)
	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.NewAdmin(admin))
}

/*
POST /api/admin/logout
*/
func (c AdminController) LogoutAction(w http.ResponseWriter, r *http.Request) {
	_ = c.sessionService.Destroy(w, r)
	_ = c.sessionService.Save(w, r)

	w.WriteHeader(http.StatusNoContent)
}

/*
GET /api/admin/me
*/
func (c AdminController) Me(w http.ResponseWriter, r *http.Request) {
	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.NewAdmin(viewmodels.GetAdminFromContext(r)))
}

/*
GET /api/admin/galleries
*/
func (c AdminController) GetGalleries(w http.ResponseWriter, r *http.Request) {
	var (
		err       error
		galleries []models.Gallery
	)

	if galleries, err = c.galleryService.GetAll(); err != nil {
		slog.Error("error getting galleries", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	result := make([]viewmodels.Gallery, 0, len(galleries))

	for _, gallery := range galleries {
		vm, ok := c.adminGallery(w, &gallery)

		if !ok {
			return
		}

		result = append(result, vm)
	}

	viewmodels.WriteJSON(w, http.StatusOK, result)
}

/*
GET /api/admin/galleries/{id}
*/
func (c AdminController) GetGallery(w http.ResponseWriter, r *http.Request) {
	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	if vm, ok := c.adminGallery(w, gallery); ok {
		viewmodels.WriteJSON(w, http.StatusOK, vm)
	}
}

/*
POST /api/admin/galleries
*/
func (c AdminController) CreateGallery(w http.ResponseWriter, r *http.Request) {
	c.saveGallery(w, r, &models.Gallery{}, http.StatusCreated)
}

/*
PUT /api/admin/galleries/{id}
*/
func (c AdminController) UpdateGallery(w http.ResponseWriter, r *http.Request) {
	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	c.saveGallery(w, r, gallery, http.StatusOK)
}

/*
DELETE /api/admin/galleries/{id}
*/
func (c AdminController) DeleteGallery(w http.ResponseWriter, r *http.Request) {
	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	if err := c.galleryService.Delete(gallery.ID); err != nil {
		slog.Error("error deleting gallery", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	slog.Info("gallery deleted", "galleryID", gallery.ID, "adminID", viewmodels.GetAdminFromContext(r).ID)
	w.WriteHeader(http.StatusNoContent)
}

/*
POST /api/admin/galleries/{id}/chapters
*/
func (c AdminController) CreateChapter(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		req viewmodels.ChapterRequest
	)

	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	if err = viewmodels.ReadJSON(r, &req); err != nil || strings.TrimSpace(req.Name) == "" {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "A chapter needs a name.")
		return
	}

	chapter := &models.Chapter{
		GalleryID: gallery.ID,
		Name:      strings.TrimSpace(req.Name),
		Position:  req.Position,
	}

	if err = c.galleryService.SaveChapter(chapter); err != nil {
		slog.Error("error saving chapter", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusCreated, viewmodels.Chapter{
		ID:       chapter.ID,
		Name:     chapter.Name,
		Position: chapter.Position,
	})
}

/*
DELETE /api/admin/galleries/{id}/chapters/{chapterid}
*/
func (c AdminController) DeleteChapter(w http.ResponseWriter, r *http.Request) {
	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	chapterID := httphelpers.GetFromRequest[string](r, "chapterid")

	if err := c.galleryService.DeleteChapter(gallery.ID, chapterID); err != nil {
		slog.Error("error deleting chapter", "error", err, "galleryID", gallery.ID, "chapterID", chapterID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
DELETE /api/admin/galleries/{id}/photos/{photoid}
*/
func (c AdminController) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	photoID := httphelpers.GetFromRequest[string](r, "photoid")

	if err := c.photoService.DeletePhoto(gallery.ID, photoID); err != nil {
		if errors.Is(err, models.ErrPhotoNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "photo not found")
			return
		}

		slog.Error("error deleting photo", "error", err, "galleryID", gallery.ID, "photoID", photoID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
DELETE /api/admin/comments/{id}
*/
func (c AdminController) DeleteComment(w http.ResponseWriter, r *http.Request) {
	commentID := httphelpers.GetFromRequest[string](r, "id")

	if err := c.photoService.DeleteComment(commentID); err != nil {
		if errors.Is(err, models.ErrCommentNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "comment not found")
			return
		}

		slog.Error("error deleting comment", "error", err, "commentID", commentID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
POST /api/admin/galleries/{id}/invite
*/
func (c AdminController) InviteAction(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		req viewmodels.InviteRequest
	)

	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	if err = viewmodels.ReadJSON(r, &req); err != nil || len(req.Recipients) == 0 {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Please add at least one recipient.")
		return
	}

	result := viewmodels.InviteResult{
		Failed: []string{},
	}

	for _, recipient := range req.Recipients {
		address, err := mail.ParseAddress(strings.TrimSpace(recipient.Email))

		if err != nil {
			result.Failed = append(result.Failed, recipient.Email)
			continue
		}

		data := map[string]any{
			"galleryName": gallery.Name,
			"code":        gallery.Code,
			"galleryURL":  c.GalleryURL(gallery.Code),
		}

		if err = c.emailService.SendTemplate(models.TemplateInvitation, strings.TrimSpace(recipient.Name), address.Address, data); err != nil {
			slog.Error("error sending invitation", "error", err, "galleryID", gallery.ID, "email", address.Address)
			result.Failed = append(result.Failed, recipient.Email)
			continue
		}

		result.Sent++
	}

	status := http.StatusOK

	if result.Sent == 0 {
		status = http.StatusBadGateway
		result.IsError = true
		result.Message = "No invitations could be sent."
	}

	slog.Info("invitations sent", "galleryID", gallery.ID, "sent", result.Sent, "failed", len(result.Failed))
	viewmodels.WriteJSON(w, status, result)
}

/*
POST /api/admin/galleries/{id}/export

The zip is built in the background and a download link is emailed to
the requesting admin.
*/
func (c AdminController) ExportAction(w http.ResponseWriter, r *http.Request) {
	gallery, ok := c.getGallery(w, r)

	if !ok {
		return
	}

	admin := viewmodels.GetAdminFromContext(r)
	fileName, err := c.exportService.CreateExportAsync(gallery, admin.Name, admin.Email)

	if err != nil {
		slog.Error("error starting export", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	viewmodels.WriteJSON(w, http.StatusAccepted, viewmodels.ExportStarted{
		BaseViewModel: viewmodels.BaseViewModel{
			Message: "Your download is being prepared. We'll email you a link when it is ready.",
		},
		FileName: fileName,
	})
}

/*
GET /api/admin/email-templates
*/
func (c AdminController) GetEmailTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := c.emailTemplateService.GetAll()

	if err != nil {
		slog.Error("error getting email templates", "error", err)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	result := make([]viewmodels.EmailTemplate, 0, len(templates))

	for _, tmpl := range templates {
		result = append(result, viewmodels.NewEmailTemplate(tmpl))
	}

	viewmodels.WriteJSON(w, http.StatusOK, result)
}

/*
PUT /api/admin/email-templates/{name}
*/
func (c AdminController) SaveEmailTemplate(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		req viewmodels.EmailTemplateRequest
	)

	if err = viewmodels.ReadJSON(r, &req); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid email template")
		return
	}

	tmpl := &models.EmailTemplate{
		Name:    strings.TrimSpace(httphelpers.GetFromRequest[string](r, "name")),
		Subject: req.Subject,
		Body:    req.Body,
	}

	if tmpl.Name == "" || strings.TrimSpace(tmpl.Subject) == "" {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "A template needs a name and a subject.")
		return
	}

	if _, _, err = services.RenderTemplate(*tmpl, nil); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if existing, err := c.emailTemplateService.GetByName(tmpl.Name); err == nil {
		tmpl.ID = existing.ID
		tmpl.CreatedAt = existing.CreatedAt
	}

	if err = c.emailTemplateService.Save(tmpl); err != nil {
		slog.Error("error saving email template", "error", err, "name", tmpl.Name)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.NewEmailTemplate(*tmpl))
}

/*
DELETE /api/admin/email-templates/{name}
*/
func (c AdminController) DeleteEmailTemplate(w http.ResponseWriter, r *http.Request) {
	name := httphelpers.GetFromRequest[string](r, "name")

	if name == models.TemplateInvitation || name == models.TemplateExportReady {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Built-in templates can be edited but not deleted.")
		return
	}

	tmpl, err := c.emailTemplateService.GetByName(name)

	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "email template not found")
			return
		}

		slog.Error("error getting email template", "error", err, "name", name)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	if err = c.emailTemplateService.Delete(tmpl.ID); err != nil {
		slog.Error("error deleting email template", "error", err, "name", name)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

/*
POST /api/admin/email-templates/{name}/preview
*/
func (c AdminController) PreviewEmailTemplate(w http.ResponseWriter, r *http.Request) {
	var (
		err error
		req viewmodels.PreviewRequest
	)

	name := httphelpers.GetFromRequest[string](r, "name")
	_ = viewmodels.ReadJSON(r, &req)

	subject, body, err := c.emailTemplateService.Render(name, req.Data)

	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "email template not found")
			return
		}

		viewmodels.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.Preview{
		Subject: subject,
		Body:    body,
	})
}

/*
GalleryURL is the public link guests follow from an invitation.
*/
func (c AdminController) GalleryURL(code string) string {
	return basepath.URL(c.publicURL, c.basePath, "/gallery/"+code)
}

func (c AdminController) saveGallery(w http.ResponseWriter, r *http.Request, gallery *models.Gallery, status int) {
	var (
		err error
		req viewmodels.GalleryRequest
	)

	if err = viewmodels.ReadJSON(r, &req); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid gallery")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	if req.Name == "" {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "A gallery needs a name.")
		return
	}

	if len(req.Code) < minCodeLength {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "Access codes must be at least 4 characters.")
		return
	}

	if existing, err := c.galleryService.GetByCode(req.Code); err == nil && existing.ID != gallery.ID {
		viewmodels.WriteMessage(w, http.StatusConflict, "That access code is already used by another gallery.")
		return
	}

	gallery.Name = req.Name
	gallery.Code = req.Code
	gallery.Description = strings.TrimSpace(req.Description)
	gallery.EventDate = req.EventDate
	gallery.CoverPhotoID = req.CoverPhotoID
	gallery.AllowUploads = req.AllowUploads

	if err = c.galleryService.Save(gallery); err != nil {
		slog.Error("error saving gallery", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	if vm, ok := c.adminGallery(w, gallery); ok {
		viewmodels.WriteJSON(w, status, vm)
	}
}

func (c AdminController) adminGallery(w http.ResponseWriter, gallery *models.Gallery) (viewmodels.Gallery, bool) {
	var (
		err      error
		chapters []models.Chapter
		count    int
	)

	if chapters, err = c.galleryService.GetChapters(gallery.ID); err != nil {
		slog.Error("error getting chapters", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return viewmodels.Gallery{}, false
	}

	if count, err = c.photoService.CountPhotos(gallery.ID, ""); err != nil {
		slog.Error("error counting photos", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return viewmodels.Gallery{}, false
	}

	result := viewmodels.NewGallery(gallery, chapters, count)
	result.Code = gallery.Code

	if gallery.CoverPhotoID != "" {
		result.CoverURL = c.mediaURLs.Thumbnail(gallery.CoverPhotoID)
	}

	return result, true
}

func (c AdminController) getGallery(w http.ResponseWriter, r *http.Request) (*models.Gallery, bool) {
	id := httphelpers.GetFromRequest[string](r, "id")
	gallery, err := c.galleryService.GetByID(id)

	if err != nil {
		if errors.Is(err, models.ErrGalleryNotFound) {
			viewmodels.WriteMessage(w, http.StatusNotFound, "gallery not found")
			return nil, false
		}

		slog.Error("error getting gallery", "error", err, "galleryID", id)
		viewmodels.WriteUnexpectedError(w)
		return nil, false
	}

	return gallery, true
}
