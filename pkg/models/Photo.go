package models

import (
	"fmt"
)

var (
	ErrPhotoNotFound   = fmt.Errorf("photo not found")
	ErrCommentNotFound = fmt.Errorf("comment not found")
)

/*
Photo is one gallery image. The pipeline treats it as immutable input;
StorageKey doubles as the image cache key.
*/
type Photo struct {
	BaseModel

	GalleryID       string
	ChapterID       string
	Name            string
	StorageKey      string
	ContentType     string
	Position        int
	UploadedByName  string
	UploadedByEmail string
	LikeCount       int
	CommentCount    int
}

type Like struct {
	PhotoID    string
	GuestEmail string
}

type Comment struct {
	BaseModel

	PhotoID    string
	GuestName  string
	GuestEmail string
	Body       string
}
