package warmup

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/createbucketoptions"
	"github.com/adampresley/adamgokit/s3/listoptions"
	"github.com/adampresley/adamgokit/slices"
	"github.com/adampresley/weddingshare/pkg/imagecache"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/pagination"
	"github.com/adampresley/weddingshare/pkg/services"
	"github.com/alitto/pond/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

type CacheWarmer interface {
	Warm() Report
}

type CacheWarmerConfig struct {
	AwsBucket       string
	AwsRegion       string
	FetchPageSize   int
	GalleryService  services.GalleryServicer
	MaxCacheWorkers int
	PhotoService    services.PhotoServicer
	PhotosFolder    string
	S3Client        s3.S3Client
	ShutdownCtx     context.Context
	ThumbnailCache  imagecache.ImageCacher
	WarmupCount     int
}

/*
Report summarizes one warm-up run.
*/
type Report struct {
	Galleries int
	Preloaded int
	Failed    int
	Orphans   []string
	Missing   []string
}

/*
CacheWarmerService fills the thumbnail cache with each gallery's cover
and first photos so the first visitors do not pay for resizing. When a
bucket is configured it also compares stored originals with the photo
rows and logs any drift.
*/
type CacheWarmerService struct {
	awsBucket       string
	awsRegion       string
	fetchPageSize   int
	galleryService  services.GalleryServicer
	maxCacheWorkers int
	photoService    services.PhotoServicer
	photosFolder    string
	s3Client        s3.S3Client
	shutdownCtx     context.Context
	thumbnailCache  imagecache.ImageCacher
	warmupCount     int
}

func NewCacheWarmerService(config CacheWarmerConfig) CacheWarmerService {
	if config.FetchPageSize <= 0 {
		config.FetchPageSize = 60
	}

	if config.MaxCacheWorkers <= 0 {
		config.MaxCacheWorkers = 1
	}

	if config.ShutdownCtx == nil {
		config.ShutdownCtx = context.Background()
	}

	return CacheWarmerService{
		awsBucket:       config.AwsBucket,
		awsRegion:       config.AwsRegion,
		fetchPageSize:   config.FetchPageSize,
		galleryService:  config.GalleryService,
		maxCacheWorkers: config.MaxCacheWorkers,
		photoService:    config.PhotoService,
		photosFolder:    config.PhotosFolder,
		s3Client:        config.S3Client,
		shutdownCtx:     config.ShutdownCtx,
		thumbnailCache:  config.ThumbnailCache,
		warmupCount:     config.WarmupCount,
	}
}

func (c CacheWarmerService) Warm() Report {
	var (
		err       error
		galleries []models.Gallery
		report    Report
	)

	slog.Info("starting cache warm-up...")

	if c.awsBucket != "" {
		if err = c.ensureBucketExists(c.awsBucket); err != nil {
			slog.Error("error ensuring bucket exists. skipping warm-up", "bucket", c.awsBucket, "error", err)
			return report
		}
	}

	if galleries, err = c.galleryService.GetAll(); err != nil {
		slog.Error("error retrieving galleries from database", "error", err)
		return report
	}

	report.Galleries = len(galleries)
	slog.Info("warming thumbnail cache for galleries...", "numGalleries", len(galleries))

	pool := pond.NewPool(c.maxCacheWorkers, pond.WithContext(c.shutdownCtx))
	results := make(chan bool, 64)
	done := make(chan struct{})

	go func() {
		for ok := range results {
			if ok {
				report.Preloaded++
			} else {
				report.Failed++
			}
		}

		close(done)
	}()

	for _, gallery := range galleries {
		photos, err := c.allPhotos(gallery.ID)

		if err != nil {
			slog.Error("error retrieving photos for gallery", "galleryID", gallery.ID, "error", err)
			continue
		}

		for _, key := range c.warmKeys(gallery, photos) {
			pool.Submit(func() {
				if _, err := c.thumbnailCache.Preload(c.shutdownCtx, key); err != nil {
					slog.Error("error preloading thumbnail", "galleryID", gallery.ID, "key", key, "error", err)
					results <- false
					return
				}

				results <- true
			})
		}

		if c.awsBucket != "" {
			orphans, missing, err := c.auditGallery(gallery.ID, photos)

			if err != nil {
				slog.Error("error auditing gallery storage", "galleryID", gallery.ID, "error", err)
				continue
			}

			report.Orphans = append(report.Orphans, orphans...)
			report.Missing = append(report.Missing, missing...)
		}
	}

	_ = pool.Stop().Wait()
	close(results)
	<-done

	if len(report.Orphans) > 0 || len(report.Missing) > 0 {
		slog.Warn("storage and database disagree", "orphans", len(report.Orphans), "missing", len(report.Missing))
	}

	slog.Info("cache warm-up finished", "preloaded", report.Preloaded, "failed", report.Failed)
	return report
}

/*
allPhotos pages through every photo of a gallery the same way a guest
view does, one fetch at a time.
*/
func (c CacheWarmerService) allPhotos(galleryID string) ([]models.Photo, error) {
	var (
		err    error
		action pagination.Action
	)

	controller := pagination.NewController(pagination.ControllerConfig[models.Photo]{
		ItemsPerPage: c.fetchPageSize,
		HasMore:      true,
		Fetch: func(ctx context.Context, offset int) ([]models.Photo, bool, error) {
			return c.photoService.GetPhotoPage(galleryID, "", offset, c.fetchPageSize)
		},
	})

	for {
		if c.shutdownCtx.Err() != nil {
			return nil, c.shutdownCtx.Err()
		}

		if action, err = controller.RequestMore(c.shutdownCtx); err != nil {
			return nil, err
		}

		if action == pagination.ActionNone {
			return controller.Items(), nil
		}
	}
}

func (c CacheWarmerService) warmKeys(gallery models.Gallery, photos []models.Photo) []string {
	result := []string{}
	seen := map[string]struct{}{}

	add := func(key string) {
		if key == "" {
			return
		}

		if _, ok := seen[key]; ok {
			return
		}

		seen[key] = struct{}{}
		result = append(result, key)
	}

	if gallery.CoverPhotoID != "" {
		for _, photo := range photos {
			if photo.ID == gallery.CoverPhotoID {
				add(photo.StorageKey)
				break
			}
		}
	}

	for i, photo := range photos {
		if i >= c.warmupCount {
			break
		}

		add(photo.StorageKey)
	}

	return result
}

func (c CacheWarmerService) auditGallery(galleryID string, photos []models.Photo) ([]string, []string, error) {
	var (
		err      error
		response s3.ListResponse
	)

	prefix := filepath.Join(c.photosFolder, galleryID, "originals")

	response, err = c.s3Client.List(
		c.awsBucket,
		prefix,
		listoptions.WithGetAll(),
		listoptions.WithFilter(func(obj types.Object) bool {
			ext := strings.ToLower(filepath.Ext(aws.ToString(obj.Key)))
			return slices.IsInSlice(ext, imageExtensions)
		}),
	)

	if err != nil {
		return nil, nil, fmt.Errorf("error listing originals for gallery %s: %w", galleryID, err)
	}

	keys := make([]string, 0, len(response.Objects))

	for _, obj := range response.Objects {
		keys = append(keys, obj.Key)
	}

	orphans, missing := Diff(keys, photos)
	return orphans, missing, nil
}

/*
Diff compares stored object keys with photo rows. Orphans are objects no
photo points at; missing are photos whose object is gone.
*/
func Diff(objectKeys []string, photos []models.Photo) ([]string, []string) {
	orphans := []string{}
	missing := []string{}

	stored := make(map[string]struct{}, len(objectKeys))

	for _, key := range objectKeys {
		stored[key] = struct{}{}
	}

	referenced := make(map[string]struct{}, len(photos))

	for _, photo := range photos {
		referenced[photo.StorageKey] = struct{}{}

		if _, ok := stored[photo.StorageKey]; !ok {
			missing = append(missing, photo.StorageKey)
		}
	}

	for _, key := range objectKeys {
		if _, ok := referenced[key]; !ok {
			orphans = append(orphans, key)
		}
	}

	return orphans, missing
}

func (c CacheWarmerService) ensureBucketExists(bucketName string) error {
	var (
		err    error
		exists bool
	)

	exists, err = c.s3Client.BucketExists(bucketName)

	if err != nil {
		return fmt.Errorf("error ensuring bucket '%s' exists: %w", bucketName, err)
	}

	if exists {
		return nil
	}

	slog.Info("creating bucket", "bucketName", bucketName)

	err = c.s3Client.CreateBucket(
		bucketName,
		createbucketoptions.WithRegion(c.awsRegion),
	)

	if err != nil {
		return fmt.Errorf("error creating bucket '%s': %w", bucketName, err)
	}

	return nil
}

/*
Start runs Warm now and then on every tick until quit closes. A tick that
arrives while a run is still going is skipped.
*/
func Start(warmer CacheWarmer, interval time.Duration, quit <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		running := make(chan struct{}, 1)

		runner := func() {
			select {
			case running <- struct{}{}:
			default:
				slog.Info("cache warmer already running. skipping...")
				return
			}

			go func() {
				defer func() { <-running }()
				warmer.Warm()
			}()
		}

		runner()

		for {
			select {
			case <-quit:
				return

			case <-ticker.C:
				runner()
			}
		}
	}()
}
