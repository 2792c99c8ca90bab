package main

import (
	"context"
	"embed"
	"encoding/gob"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/awsconfig"
	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/sessions"
	"github.com/adampresley/weddingshare/cmd/website/internal/admin"
	"github.com/adampresley/weddingshare/cmd/website/internal/configuration"
	"github.com/adampresley/weddingshare/cmd/website/internal/galleryaccess"
	"github.com/adampresley/weddingshare/cmd/website/internal/galleryview"
	"github.com/adampresley/weddingshare/cmd/website/internal/media"
	internalmodels "github.com/adampresley/weddingshare/cmd/website/internal/models"
	"github.com/adampresley/weddingshare/cmd/website/internal/spa"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/cmd/website/internal/warmup"
	"github.com/adampresley/weddingshare/pkg/basepath"
	"github.com/adampresley/weddingshare/pkg/imagecache"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/services"
	_ "github.com/glebarez/sqlite"
	"github.com/rfberaldo/sqlz"
	"github.com/rfberaldo/sqlz/binds"
	"github.com/rs/cors"
)

var (
	Version string = "development"
	appName string = "weddingshare"

	//go:embed app
	appFS embed.FS

	//go:embed sql-migrations
	sqlMigrationsFs embed.FS

	config configuration.Config

	/* Services */
	adminService         services.AdminServicer
	adminSessionService  sessions.Session[*internalmodels.AdminSession]
	cacheWarmerService   warmup.CacheWarmer
	db                   *sqlz.DB
	emailService         services.EmailServicer
	emailTemplateService services.EmailTemplateServicer
	exportService        *services.ExportService
	galleryService       services.GalleryServicer
	guestSessionService  sessions.Session[*models.GuestPass]
	photoService         services.PhotoServicer
	thumbnailCache       *imagecache.ImageCache
	viewRegistry         *galleryview.ViewRegistry
	voiceMemoService     services.VoiceMemoServicer

	/* Controllers */
	adminController         admin.AdminController
	galleryAccessController galleryaccess.GalleryAccessController
	galleryViewController   galleryview.GalleryViewController
	mediaController         media.MediaController
	spaHost                 *spa.SpaHost
)

func main() {
	var (
		err error
	)

	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("loglevel", config.LogLevel),
		slog.String("host", config.Host),
		slog.String("basePath", basepath.Normalize(config.BasePath)),
		slog.String("publicURL", config.PublicURL),
		slog.String("awsEndpointUrl", config.AwsEndpointUrl),
		slog.String("awsRegion", config.AwsRegion),
	)

	slog.Debug("setting up...")

	shutdownCtx, cancel := context.WithCancel(context.Background())

	/*
	 * Setup services
	 */
	binds.Register("sqlite", binds.BindByDriver("sqlite3"))
	if db, err = sqlz.Connect("sqlite", config.DSN); err != nil {
		panic(err)
	}

	migrateDatabase()
	gob.Register(&models.GuestPass{})
	gob.Register(&internalmodels.AdminSession{})

	cookieStore := sessions.NewCookieStore(config.CookieSecret)
	guestSessionService = sessions.NewSessionWrapper[*models.GuestPass](cookieStore, "weddingshareguests", "guest")
	adminSessionService = sessions.NewSessionWrapper[*internalmodels.AdminSession](cookieStore, "weddingshareadmins", "admin")

	awsConfig := &awsconfig.Config{
		Endpoint:        config.AwsEndpointUrl,
		Region:          config.AwsRegion,
		AccessKeyID:     config.AwsAccessKeyId,
		SecretAccessKey: config.AwsSecretAccessKey,
	}

	retrier.Retry(func() error {
		if err = awsConfig.Load(); err != nil {
			slog.Error("failed to load AWS config. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	s3Client, err := s3.NewClient(awsConfig)

	if err != nil {
		panic(err)
	}

	adminService = services.NewAdminService(services.AdminServiceConfig{
		DB: db,
	})

	galleryService = services.NewGalleryService(services.GalleryServiceConfig{
		DB: db,
	})

	photoService = services.NewPhotoService(services.PhotoServiceConfig{
		DB: db,
	})

	voiceMemoService = services.NewVoiceMemoService(services.VoiceMemoServiceConfig{
		DB: db,
	})

	emailTemplateService = services.NewEmailTemplateService(services.EmailTemplateServiceConfig{
		DB: db,
	})

	emailService = services.NewEmailService(services.EmailServiceConfig{
		ApiKey:          config.EmailApiKey,
		FromEmail:       config.FromEmail,
		FromName:        config.FromName,
		TemplateService: emailTemplateService,
	})

	exportService = services.NewExportService(services.ExportServiceConfig{
		BaseDownloadURL: config.PublicURL,
		BasePath:        config.BasePath,
		Bucket:          config.AwsBucket,
		EmailService:    emailService,
		ExpirationDays:  config.ExportExpirationDays,
		GalleryService:  galleryService,
		PhotoService:    photoService,
		PhotosFolder:    config.PhotosFolder,
		S3Client:        s3Client,
	})

	if config.AdminEmail != "" {
		if err = adminService.EnsureAdmin(config.AdminEmail, config.AdminName, config.AdminPassword); err != nil {
			panic(err)
		}
	}

	var originals imagecache.Loader = imagecache.S3Loader{
		S3Client: s3Client,
		Bucket:   config.AwsBucket,
	}

	if config.ImageSourceURL != "" {
		originals = imagecache.HTTPLoader{
			BaseURL: config.ImageSourceURL,
			Client:  &http.Client{Timeout: 30 * time.Second},
		}
	}

	thumbnailCache = imagecache.NewImageCache(imagecache.ImageCacheConfig{
		Capacity: config.ImageCacheCapacity,
		Loader: imagecache.ThumbnailLoader{
			Source:  originals,
			MaxSize: uint(config.ThumbnailSize),
		},
		MaxConcurrentLoads: config.MaxCacheWorkers,
	})

	viewRegistry = galleryview.NewViewRegistry(galleryview.ViewRegistryConfig{
		Cache:         thumbnailCache,
		FetchPageSize: config.FetchPageSize,
		IdleTimeout:   time.Duration(config.ViewIdleMinutes) * time.Minute,
		ItemsPerPage:  config.ItemsPerPage,
		PhotoService:  photoService,
		RootMargin:    float64(config.RootMargin),
		Threshold:     float64(config.VisibilityPercent) / 100,
		WarmupCount:   config.WarmupCount,
	})

	cacheWarmerService = warmup.NewCacheWarmerService(warmup.CacheWarmerConfig{
		AwsBucket:       config.AwsBucket,
		AwsRegion:       config.AwsRegion,
		FetchPageSize:   config.FetchPageSize,
		GalleryService:  galleryService,
		MaxCacheWorkers: config.MaxCacheWorkers,
		PhotoService:    photoService,
		PhotosFolder:    config.PhotosFolder,
		S3Client:        s3Client,
		ShutdownCtx:     shutdownCtx,
		ThumbnailCache:  thumbnailCache,
		WarmupCount:     config.WarmupCount,
	})

	/*
	 * Setup controllers
	 */
	mediaURLs := viewmodels.MediaURLs{BasePath: config.BasePath}
	maxUploadBytes := int64(config.MaxUploadMB) << 20

	adminController = admin.NewAdminController(admin.AdminControllerConfig{
		AdminService:         adminService,
		BasePath:             config.BasePath,
		EmailService:         emailService,
		EmailTemplateService: emailTemplateService,
		ExportService:        exportService,
		GalleryService:       galleryService,
		MediaURLs:            mediaURLs,
		PhotoService:         photoService,
		PublicURL:            config.PublicURL,
		SessionService:       adminSessionService,
	})

	galleryAccessController = galleryaccess.NewGalleryAccessController(galleryaccess.GalleryAccessControllerConfig{
		Bucket:           config.AwsBucket,
		GalleryService:   galleryService,
		MaxUploadBytes:   maxUploadBytes,
		MediaURLs:        mediaURLs,
		PhotoService:     photoService,
		PhotosFolder:     config.PhotosFolder,
		S3Client:         s3Client,
		SessionService:   guestSessionService,
		VoiceMemoService: voiceMemoService,
	})

	galleryViewController = galleryview.NewGalleryViewController(galleryview.GalleryViewControllerConfig{
		MediaURLs: mediaURLs,
		Registry:  viewRegistry,
		Settings: viewmodels.Settings{
			BasePath:     basepath.Normalize(config.BasePath),
			ItemsPerPage: config.ItemsPerPage,
			RootMargin:   float64(config.RootMargin),
			Threshold:    float64(config.VisibilityPercent) / 100,
		},
	})

	mediaController = media.NewMediaController(media.MediaControllerConfig{
		AccessChecker:    newMediaAccessChecker(adminSessionService, adminService),
		Bucket:           config.AwsBucket,
		GalleryService:   galleryService,
		MaxUploadBytes:   maxUploadBytes,
		MediaURLs:        mediaURLs,
		PhotoService:     photoService,
		PhotosFolder:     config.PhotosFolder,
		S3Client:         s3Client,
		ThumbnailCache:   thumbnailCache,
		VoiceMemoService: voiceMemoService,
	})

	if spaHost, err = spa.NewSpaHost(spa.SpaHostConfig{
		BasePath: config.BasePath,
		FS:       spaFS(),
	}); err != nil {
		panic(err)
	}

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	guest := newGuestSessionMiddleware(guestSessionService)
	gallery := chain(guest, newGalleryMiddleware(galleryService))
	adminOnly := newAdminMiddleware(adminSessionService, adminService)

	api := func(middlewares ...func(http.Handler) http.Handler) []mux.MiddlewareFunc {
		if origins := allowedOrigins(config.AllowedOrigins); len(origins) > 0 {
			c := cors.New(cors.Options{
				AllowedOrigins:   origins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
				AllowedHeaders:   []string{"Content-Type"},
				AllowCredentials: true,
			})

			middlewares = append([]func(http.Handler) http.Handler{c.Handler}, middlewares...)
		}

		return []mux.MiddlewareFunc{chain(middlewares...)}
	}

	at := func(method, p string) string {
		return method + " " + basepath.Join(config.BasePath, p)
	}

	routes := []mux.Route{
		{Path: at("GET", "/heartbeat"), HandlerFunc: heartbeat},
		{Path: at("OPTIONS", "/api/"), HandlerFunc: preflight, Middlewares: api()},
		{Path: at("GET", "/api/settings"), HandlerFunc: galleryViewController.Settings, Middlewares: api()},

		/* Guests */
		{Path: at("POST", "/api/galleries/{code}/access"), HandlerFunc: galleryAccessController.AccessAction, Middlewares: api(guest)},
		{Path: at("GET", "/api/galleries/{code}"), HandlerFunc: galleryAccessController.GetGallery, Middlewares: api(gallery)},
		{Path: at("PUT", "/api/galleries/{code}/identity"), HandlerFunc: galleryAccessController.UpdateIdentity, Middlewares: api(gallery)},
		{Path: at("GET", "/api/galleries/{code}/voice-memos"), HandlerFunc: galleryAccessController.GetVoiceMemos, Middlewares: api(gallery)},
		{Path: at("POST", "/api/galleries/{code}/voice-memos"), HandlerFunc: galleryAccessController.UploadVoiceMemo, Middlewares: api(gallery)},
		{Path: at("POST", "/api/galleries/{code}/photos"), HandlerFunc: mediaController.GuestUpload, Middlewares: api(gallery)},
		{Path: at("POST", "/api/galleries/{code}/views"), HandlerFunc: galleryViewController.CreateView, Middlewares: api(gallery)},
		{Path: at("GET", "/api/views/{id}"), HandlerFunc: galleryViewController.GetView, Middlewares: api(guest)},
		{Path: at("POST", "/api/views/{id}/more"), HandlerFunc: galleryViewController.RequestMore, Middlewares: api(guest)},
		{Path: at("POST", "/api/views/{id}/visible"), HandlerFunc: galleryViewController.ReportVisible, Middlewares: api(guest)},
		{Path: at("DELETE", "/api/views/{id}"), HandlerFunc: galleryViewController.DeleteView, Middlewares: api(guest)},
		{Path: at("PUT", "/api/photos/{id}/like"), HandlerFunc: galleryAccessController.ToggleLike, Middlewares: api(guest)},
		{Path: at("GET", "/api/photos/{id}/comments"), HandlerFunc: galleryAccessController.GetComments, Middlewares: api(guest)},
		{Path: at("POST", "/api/photos/{id}/comments"), HandlerFunc: galleryAccessController.AddComment, Middlewares: api(guest)},

		/* Media */
		{Path: at("GET", "/media/photos/{id}/thumbnail"), HandlerFunc: mediaController.Thumbnail, Middlewares: []mux.MiddlewareFunc{guest}},
		{Path: at("GET", "/media/photos/{id}/original"), HandlerFunc: mediaController.Original, Middlewares: []mux.MiddlewareFunc{guest}},
		{Path: at("GET", "/media/voice-memos/{id}"), HandlerFunc: mediaController.VoiceMemo, Middlewares: []mux.MiddlewareFunc{guest}},
		{Path: at("GET", "/media/exports/{galleryid}/{filename}"), HandlerFunc: mediaController.Export},

		/* Admin */
		{Path: at("POST", "/api/admin/login"), HandlerFunc: adminController.LoginAction, Middlewares: api()},
		{Path: at("POST", "/api/admin/logout"), HandlerFunc: adminController.LogoutAction, Middlewares: api()},
		{Path: at("GET", "/api/admin/me"), HandlerFunc: adminController.Me, Middlewares: api(adminOnly)},
		{Path: at("GET", "/api/admin/galleries"), HandlerFunc: adminController.GetGalleries, Middlewares: api(adminOnly)},
		{Path: at("POST", "/api/admin/galleries"), HandlerFunc: adminController.CreateGallery, Middlewares: api(adminOnly)},
		{Path: at("GET", "/api/admin/galleries/{id}"), HandlerFunc: adminController.GetGallery, Middlewares: api(adminOnly)},
		{Path: at("PUT", "/api/admin/galleries/{id}"), HandlerFunc: adminController.UpdateGallery, Middlewares: api(adminOnly)},
		{Path: at("DELETE", "/api/admin/galleries/{id}"), HandlerFunc: adminController.DeleteGallery, Middlewares: api(adminOnly)},
		{Path: at("POST", "/api/admin/galleries/{id}/chapters"), HandlerFunc: adminController.CreateChapter, Middlewares: api(adminOnly)},
		{Path: at("DELETE", "/api/admin/galleries/{id}/chapters/{chapterid}"), HandlerFunc: adminController.DeleteChapter, Middlewares: api(adminOnly)},
		{Path: at("POST", "/api/admin/galleries/{id}/photos"), HandlerFunc: mediaController.AdminUpload, Middlewares: api(adminOnly)},
		{Path: at("DELETE", "/api/admin/galleries/{id}/photos/{photoid}"), HandlerFunc: adminController.DeletePhoto, Middlewares: api(adminOnly)},
		{Path: at("DELETE", "/api/admin/comments/{id}"), HandlerFunc: adminController.DeleteComment, Middlewares: api(adminOnly)},
		{Path: at("POST", "/api/admin/galleries/{id}/invite"), HandlerFunc: adminController.InviteAction, Middlewares: api(adminOnly)},
		{Path: at("POST", "/api/admin/galleries/{id}/export"), HandlerFunc: adminController.ExportAction, Middlewares: api(adminOnly)},
		{Path: at("GET", "/api/admin/email-templates"), HandlerFunc: adminController.GetEmailTemplates, Middlewares: api(adminOnly)},
		{Path: at("PUT", "/api/admin/email-templates/{name}"), HandlerFunc: adminController.SaveEmailTemplate, Middlewares: api(adminOnly)},
		{Path: at("DELETE", "/api/admin/email-templates/{name}"), HandlerFunc: adminController.DeleteEmailTemplate, Middlewares: api(adminOnly)},
		{Path: at("POST", "/api/admin/email-templates/{name}/preview"), HandlerFunc: adminController.PreviewEmailTemplate, Middlewares: api(adminOnly)},

		/* Single page app */
		{Path: "GET " + basepath.Normalize(config.BasePath), HandlerFunc: spaHost.ServeHTTP},
	}

	routerConfig := mux.RouterConfig{
		Address:            config.Host,
		Debug:              Version == "development",
		ServeStaticContent: false,
		HttpWriteTimeout:   60,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Start background jobs
	 */
	exportService.StartCleanupRoutine(24 * time.Hour)
	viewRegistry.StartCleanupRoutine(time.Minute)
	warmup.Start(cacheWarmerService, time.Hour, shutdownCtx.Done())

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	cancel()
	mux.Shutdown(httpServer)

	viewRegistry.StopCleanupRoutine()
	exportService.StopCleanupRoutine()
	exportService.Wait()
	thumbnailCache.Close()

	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

/*
spaFS returns the built single page app. A configured directory wins over
the build embedded in the binary.
*/
func spaFS() fs.FS {
	if config.SpaDir != "" {
		return os.DirFS(config.SpaDir)
	}

	sub, err := fs.Sub(appFS, "app")

	if err != nil {
		panic(err)
	}

	return sub
}

func allowedOrigins(value string) []string {
	result := []string{}

	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			result = append(result, origin)
		}
	}

	return result
}

func migrateDatabase() {
	var (
		err  error
		dirs []fs.DirEntry
		b    []byte
	)

	if dirs, err = sqlMigrationsFs.ReadDir("sql-migrations"); err != nil {
		panic(err)
	}

	for _, d := range dirs {
		if d.IsDir() {
			continue
		}

		if strings.HasPrefix(d.Name(), "commit") {
			if b, err = fs.ReadFile(sqlMigrationsFs, filepath.Join("sql-migrations", d.Name())); err != nil {
				panic(err)
			}

			if err = runSqlScript(b); err != nil {
				if !isIgnorableError(err) {
					panic(err)
				}
			}
		}
	}
}

func runSqlScript(script []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	_, err := db.Exec(ctx, string(script))
	return err
}

func isIgnorableError(err error) bool {
	if strings.Contains(err.Error(), "duplicate column") {
		return true
	}

	return false
}
