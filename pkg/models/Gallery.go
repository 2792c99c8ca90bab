package models

import (
	"fmt"
	"time"
)

var (
	ErrGalleryNotFound = fmt.Errorf("gallery not found")
)

type Gallery struct {
	BaseModel

	Name         string
	Code         string
	Description  string
	EventDate    time.Time
	CoverPhotoID string
	AllowUploads bool
	Chapters     []Chapter
}

type Chapter struct {
	BaseModel

	GalleryID string
	Name      string
	Position  int
}
