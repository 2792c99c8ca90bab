package configuration

import "github.com/adampresley/configinator"

type Config struct {
	AdminEmail           string `flag:"adminemail" env:"ADMIN_EMAIL" default:"" description:"Email of the bootstrap administrator. Created on startup when missing"`
	AdminName            string `flag:"adminname" env:"ADMIN_NAME" default:"Administrator" description:"Display name of the bootstrap administrator"`
	AdminPassword        string `flag:"adminpassword" env:"ADMIN_PASSWORD" default:"" description:"Password of the bootstrap administrator"`
	AllowedOrigins       string `flag:"allowedorigins" env:"ALLOWED_ORIGINS" default:"" description:"Comma separated list of origins allowed to call the API. Empty means same origin only"`
	AwsEndpointUrl       string `flag:"awsep" env:"AWS_ENDPOINT_URL" default:"http://localhost:4566" description:"AWS endpoint URL"`
	AwsRegion            string `flag:"awsregion" env:"AWS_REGION" default:"us-central-1" description:"AWS region"`
	AwsAccessKeyId       string `flag:"awsaccesskeyid" env:"AWS_ACCESS_KEY_ID" default:"" description:"AWS access key ID"`
	AwsSecretAccessKey   string `flag:"awssecretaccesskey" env:"AWS_SECRET_ACCESS_KEY" default:"" description:"AWS secret access key"`
	AwsBucket            string `flag:"awsbucket" env:"AWS_BUCKET" default:"weddingshare" description:"S3 bucket"`
	BasePath             string `flag:"basepath" env:"BASE_PATH" default:"/" description:"Path prefix the application is served under, e.g. /wedding/"`
	CookieSecret         string `flag:"cookiesecret" env:"COOKIE_SECRET" default:"password" description:"Secret for encoding cookies"`
	DSN                  string `flag:"dsn" env:"DSN" default:"file:./data/weddingshare.db" description:"Data source name"`
	EmailApiKey          string `flag:"emailapikey" env:"EMAIL_API_KEY" default:"" description:"API key for sending emails"`
	ExportExpirationDays int    `flag:"exportexpiration" env:"EXPORT_EXPIRATION_DAYS" default:"7" description:"Number of days before gallery exports are removed"`
	FetchPageSize        int    `flag:"fetchpagesize" env:"FETCH_PAGE_SIZE" default:"60" description:"Number of photos fetched from the database per page"`
	FromEmail            string `flag:"fromemail" env:"FROM_EMAIL" default:"noreply@example.com" description:"Sender address for outgoing email"`
	FromName             string `flag:"fromname" env:"FROM_NAME" default:"Wedding Photos" description:"Sender name for outgoing email"`
	Host                 string `flag:"host" env:"HOST" default:"localhost:8081" description:"The address and port to bind the HTTP server to"`
	ImageCacheCapacity   int    `flag:"imagecachecapacity" env:"IMAGE_CACHE_CAPACITY" default:"100" description:"Maximum number of decoded thumbnails kept in memory"`
	ImageSourceURL       string `flag:"imagesourceurl" env:"IMAGE_SOURCE_URL" default:"" description:"Optional HTTP base URL originals are read from for thumbnails, e.g. a CDN in front of the bucket. Empty reads from S3"`
	ItemsPerPage         int    `flag:"itemsperpage" env:"ITEMS_PER_PAGE" default:"20" description:"Number of photos revealed per page in a gallery view"`
	LogLevel             string `flag:"loglevel" env:"LOG_LEVEL" default:"debug" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	MaxCacheWorkers      int    `flag:"mcc" env:"MAX_CACHE_WORKERS" default:"10" description:"Maximum number of concurrent image loads"`
	MaxUploadMB          int    `flag:"maxuploadmb" env:"MAX_UPLOAD_MB" default:"50" description:"Maximum size of an uploaded photo or voice memo in megabytes"`
	PhotosFolder         string `flag:"photosfolder" env:"PHOTOS_FOLDER" default:"galleries" description:"S3 folder for gallery photos, voice memos and exports"`
	PublicURL            string `flag:"publicurl" env:"PUBLIC_URL" default:"http://localhost:8081" description:"Public URL of the site, used in emailed links. BASE_PATH is appended when it is not already part of it"`
	RootMargin           int    `flag:"rootmargin" env:"ROOT_MARGIN" default:"150" description:"Pixels around the viewport that count as visible"`
	SpaDir               string `flag:"spadir" env:"SPA_DIR" default:"" description:"Directory of the built single page app. Empty serves the embedded build"`
	ThumbnailSize        int    `flag:"thumbnailsize" env:"THUMBNAIL_SIZE" default:"400" description:"Longest edge of generated thumbnails in pixels"`
	ViewIdleMinutes      int    `flag:"viewidle" env:"VIEW_IDLE_MINUTES" default:"30" description:"Minutes before an unused gallery view is discarded"`
	VisibilityPercent    int    `flag:"visibilitypercent" env:"VISIBILITY_PERCENT" default:"10" description:"Percentage of an element that must be visible to start loading"`
	WarmupCount          int    `flag:"warmupcount" env:"WARMUP_COUNT" default:"10" description:"Number of photos preloaded when a gallery view opens"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	return config
}
