package viewmodels

import (
	"time"

	"github.com/adampresley/weddingshare/pkg/basepath"
	"github.com/adampresley/weddingshare/pkg/models"
)

/*
MediaURLs builds the media endpoint URLs the SPA uses, under the site's
base path.
*/
type MediaURLs struct {
	BasePath string
}

func (m MediaURLs) Thumbnail(photoID string) string {
	return basepath.Join(m.BasePath, "/media/photos/"+photoID+"/thumbnail")
}

func (m MediaURLs) Original(photoID string) string {
	return basepath.Join(m.BasePath, "/media/photos/"+photoID+"/original")
}

func (m MediaURLs) VoiceMemo(memoID string) string {
	return basepath.Join(m.BasePath, "/media/voice-memos/"+memoID)
}

type Identity struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	HasAccess bool   `json:"hasAccess"`
}

type Chapter struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type Gallery struct {
	BaseViewModel

	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code,omitempty"`
	Description  string    `json:"description"`
	EventDate    time.Time `json:"eventDate"`
	CoverURL     string    `json:"coverUrl,omitempty"`
	AllowUploads bool      `json:"allowUploads"`
	Chapters     []Chapter `json:"chapters"`
	PhotoCount   int       `json:"photoCount"`
	Identity     *Identity `json:"identity,omitempty"`
}

type Photo struct {
	ID             string `json:"id"`
	ChapterID      string `json:"chapterId,omitempty"`
	Name           string `json:"name"`
	ThumbnailURL   string `json:"thumbnailUrl"`
	OriginalURL    string `json:"originalUrl"`
	UploadedByName string `json:"uploadedByName,omitempty"`
	LikeCount      int    `json:"likeCount"`
	CommentCount   int    `json:"commentCount"`
}

type Comment struct {
	ID        string    `json:"id"`
	GuestName string    `json:"guestName"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type VoiceMemo struct {
	ID              string    `json:"id"`
	GuestName       string    `json:"guestName"`
	URL             string    `json:"url"`
	ContentType     string    `json:"contentType"`
	DurationSeconds int       `json:"durationSeconds"`
	CreatedAt       time.Time `json:"createdAt"`
}

type LikeToggled struct {
	BaseViewModel

	PhotoID string `json:"photoId"`
	Liked   bool   `json:"liked"`
}

func NewIdentity(identity models.GuestIdentity) *Identity {
	return &Identity{
		Name:      identity.Name,
		Email:     identity.Email,
		HasAccess: identity.HasAccess,
	}
}

func NewGallery(gallery *models.Gallery, chapters []models.Chapter, photoCount int) Gallery {
	result := Gallery{
		ID:           gallery.ID,
		Name:         gallery.Name,
		Description:  gallery.Description,
		EventDate:    gallery.EventDate,
		AllowUploads: gallery.AllowUploads,
		Chapters:     make([]Chapter, 0, len(chapters)),
		PhotoCount:   photoCount,
	}

	for _, chapter := range chapters {
		result.Chapters = append(result.Chapters, Chapter{
			ID:       chapter.ID,
			Name:     chapter.Name,
			Position: chapter.Position,
		})
	}

	return result
}

func NewPhoto(photo models.Photo, urls MediaURLs) Photo {
	return Photo{
		ID:             photo.ID,
		ChapterID:      photo.ChapterID,
		Name:           photo.Name,
		ThumbnailURL:   urls.Thumbnail(photo.ID),
		OriginalURL:    urls.Original(photo.ID),
		UploadedByName: photo.UploadedByName,
		LikeCount:      photo.LikeCount,
		CommentCount:   photo.CommentCount,
	}
}

func NewComments(comments []models.Comment) []Comment {
	result := make([]Comment, 0, len(comments))

	for _, comment := range comments {
		result = append(result, Comment{
			ID:        comment.ID,
			GuestName: comment.GuestName,
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
		})
	}

	return result
}

func NewVoiceMemos(memos []models.VoiceMemo, urls MediaURLs) []VoiceMemo {
	result := make([]VoiceMemo, 0, len(memos))

	for _, memo := range memos {
		result = append(result, VoiceMemo{
			ID:              memo.ID,
			GuestName:       memo.GuestName,
			URL:             urls.VoiceMemo(memo.ID),
			ContentType:     memo.ContentType,
			DurationSeconds: memo.DurationSeconds,
			CreatedAt:       memo.CreatedAt,
		})
	}

	return result
}
