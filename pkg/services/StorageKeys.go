package services

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

/*
Object storage layout:

	{folder}/{galleryID}/originals/{id}{ext}
	{folder}/{galleryID}/voice-memos/{id}{ext}
	{folder}/{galleryID}/exports/{name}-{token}.zip
*/

func OriginalKey(folder, galleryID, fileName string) string {
	return path.Join(folder, galleryID, "originals", uuid.NewString()+strings.ToLower(path.Ext(fileName)))
}

func VoiceMemoKey(folder, galleryID, fileName string) string {
	return path.Join(folder, galleryID, "voice-memos", uuid.NewString()+strings.ToLower(path.Ext(fileName)))
}

func ExportsPrefix(folder, galleryID string) string {
	return path.Join(folder, galleryID, "exports")
}

func ExportKey(folder, galleryID, fileName string) string {
	return path.Join(ExportsPrefix(folder, galleryID), fileName)
}
