package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/sessions"
	internalmodels "github.com/adampresley/weddingshare/cmd/website/internal/models"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
)

var (
	errLoginRequired  = fmt.Errorf("login required")
	errSessionExpired = fmt.Errorf("session expired")
)

/*
newGuestSessionMiddleware puts the guest pass from the cookie into the
request context. Requests without a cookie get an empty pass.
*/
func newGuestSessionMiddleware(sessionService sessions.Session[*models.GuestPass]) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				err  error
				pass *models.GuestPass
			)

			if pass, err = sessionService.Get(r); err != nil || pass == nil {
				pass = &models.GuestPass{}
			}

			next.ServeHTTP(w, r.WithContext(viewmodels.WithGuestPass(r.Context(), pass)))
		})
	}
}

/*
newGalleryMiddleware resolves the {code} path value to a gallery the
guest has unlocked. Must run after the guest session middleware.
*/
func newGalleryMiddleware(galleryService services.GalleryServicer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := httphelpers.GetFromRequest[string](r, "code")
			gallery, err := galleryService.GetByCode(code)

			if err != nil {
				if errors.Is(err, models.ErrGalleryNotFound) {
					viewmodels.WriteMessage(w, http.StatusNotFound, "gallery not found")
					return
				}

				slog.Error("error looking up gallery by code", "error", err)
				viewmodels.WriteUnexpectedError(w)
				return
			}

			if !viewmodels.HasGalleryAccess(r, gallery.ID) {
				viewmodels.WriteAccessRequired(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(viewmodels.WithGallery(r.Context(), gallery)))
		})
	}
}

/*
newAdminMiddleware loads the signed in administrator into the context.
*/
func newAdminMiddleware(sessionService sessions.Session[*internalmodels.AdminSession], adminService services.AdminServicer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := loadAdmin(w, r, sessionService, adminService)

			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(viewmodels.WithAdmin(r.Context(), admin)))

			case errors.Is(err, errLoginRequired):
				viewmodels.WriteMessage(w, http.StatusUnauthorized, "login required")

			case errors.Is(err, errSessionExpired):
				viewmodels.WriteMessage(w, http.StatusUnauthorized, "session expired")

			default:
				slog.Error("error loading admin for session", "error", err)
				viewmodels.WriteUnexpectedError(w)
			}
		})
	}
}

/*
loadAdmin resolves the admin behind the session cookie. When w is set, a
session whose admin no longer exists is destroyed.
*/
func loadAdmin(w http.ResponseWriter, r *http.Request, sessionService sessions.Session[*internalmodels.AdminSession], adminService services.AdminServicer) (*models.Admin, error) {
	var (
		err     error
		session *internalmodels.AdminSession
		admin   *models.Admin
	)

	if session, err = sessionService.Get(r); err != nil || session == nil || session.AdminID == "" {
		return nil, errLoginRequired
	}

	if admin, err = adminService.GetByID(session.AdminID); err != nil {
		if !errors.Is(err, models.ErrAdminNotFound) {
			return nil, fmt.Errorf("error loading admin %s: %w", session.AdminID, err)
		}

		slog.Info("admin session refers to a missing admin", "adminID", session.AdminID)

		if w != nil {
			_ = sessionService.Destroy(w, r)
			_ = sessionService.Save(w, r)
		}

		return nil, errSessionExpired
	}

	return admin, nil
}

/*
newMediaAccessChecker lets guests who unlocked a gallery, and any signed
in administrator, read its media.
*/
func newMediaAccessChecker(sessionService sessions.Session[*internalmodels.AdminSession], adminService services.AdminServicer) func(r *http.Request, galleryID string) bool {
	return func(r *http.Request, galleryID string) bool {
		if viewmodels.HasGalleryAccess(r, galleryID) {
			return true
		}

		_, err := loadAdmin(nil, r, sessionService, adminService)
		return err == nil
	}
}

/*
chain wraps next so the first middleware given runs first.
*/
func chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}
