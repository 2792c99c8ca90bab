package viewmodels

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/goccy/go-json"
)

type contextKey string

const (
	adminContextKey     contextKey = "admin"
	galleryContextKey   contextKey = "gallery"
	guestPassContextKey contextKey = "guestPass"

	maxJSONBodyBytes = 1 << 20
)

type BaseViewModel struct {
	Message string `json:"message"`
	IsError bool   `json:"isError"`
}

func WriteJSON(w http.ResponseWriter, status int, value any) {
	b, err := json.Marshal(value)

	if err != nil {
		slog.Error("error marshaling response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"An unexpected error occurred.","isError":true}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, BaseViewModel{
		Message: message,
		IsError: status >= http.StatusBadRequest,
	})
}

func WriteUnexpectedError(w http.ResponseWriter) {
	WriteMessage(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
}

func ReadJSON(r *http.Request, dest any) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))

	if err != nil {
		return fmt.Errorf("error reading request body: %w", err)
	}

	if err = json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("error decoding request body: %w", err)
	}

	return nil
}

func WithGuestPass(ctx context.Context, pass *models.GuestPass) context.Context {
	return context.WithValue(ctx, guestPassContextKey, pass)
}

func GetGuestPassFromContext(r *http.Request) *models.GuestPass {
	if result, ok := r.Context().Value(guestPassContextKey).(*models.GuestPass); ok && result != nil {
		return result
	}

	return &models.GuestPass{}
}

func WithGallery(ctx context.Context, gallery *models.Gallery) context.Context {
	return context.WithValue(ctx, galleryContextKey, gallery)
}

func GetGalleryFromContext(r *http.Request) *models.Gallery {
	if result, ok := r.Context().Value(galleryContextKey).(*models.Gallery); ok {
		return result
	}

	return nil
}

func WithAdmin(ctx context.Context, admin *models.Admin) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

func GetAdminFromContext(r *http.Request) *models.Admin {
	if result, ok := r.Context().Value(adminContextKey).(*models.Admin); ok {
		return result
	}

	return &models.Admin{}
}

func HasGalleryAccess(r *http.Request, galleryID string) bool {
	return GetGuestPassFromContext(r).Identity(galleryID).HasAccess
}

func WriteAccessRequired(w http.ResponseWriter) {
	WriteMessage(w, http.StatusForbidden, "access code required")
}
