package models

type VoiceMemo struct {
	BaseModel

	GalleryID       string
	GuestName       string
	GuestEmail      string
	StorageKey      string
	ContentType     string
	DurationSeconds int
}
