package domain

import (
	"errors"
	"math"
	"mime"
	"path"
	"strings"
	"time"
)

const MaxUploadBytes = 2 * 1024 * 1024

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
)

var userMessages = map[error]string{
	ErrUnsupportedFormat: "Unsupported file format. Please use PNG or JPG.",
	ErrFileTooLarge:      "File too large. Please use images under 2MB for optimal processing speed.",
}

// UserMessage returns the message shown to the person uploading the file.
func UserMessage(err error) string {
	for target, msg := range userMessages {
		if errors.Is(err, target) {
			return msg
		}
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

var allowedUploadTypes = map[string]string{
	"image/png":  "image/png",
	"image/jpeg": "image/jpeg",
	"image/jpg":  "image/jpeg",
}

// ValidateUpload checks the declared content type before the size, matching the
// order the upload form reports problems in.
func ValidateUpload(contentType string, size int64) error {
	if _, ok := allowedUploadTypes[NormalizeContentType(contentType)]; !ok {
		return ErrUnsupportedFormat
	}
	if size > MaxUploadBytes {
		return ErrFileTooLarge
	}
	return nil
}

func NormalizeContentType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return strings.ToLower(mediaType)
}

// SniffMatches reports whether the sniffed content type agrees with the declared one.
func SniffMatches(declared, sniffed string) bool {
	want, ok := allowedUploadTypes[NormalizeContentType(declared)]
	if !ok {
		return false
	}
	got, ok := allowedUploadTypes[NormalizeContentType(sniffed)]
	return ok && got == want
}

type Upload struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ContentType string         `json:"content_type"`
	Size        int64          `json:"size"`
	Digest      string         `json:"digest"`
	ObjectKey   string         `json:"object_key"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Palette     ColorPalette   `json:"palette"`
	Structure   StructureClass `json:"structure"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (u Upload) SizeKB() int {
	return int(math.Round(float64(u.Size) / 1024))
}

// SVGName swaps the final extension of name for ".svg".
func SVGName(name string) string {
	name = path.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" || name == "" {
		return "output.svg"
	}
	name = strings.TrimSuffix(name, ".")
	if ext := path.Ext(name); len(ext) > 1 {
		name = strings.TrimSuffix(name, ext)
	}
	return name + ".svg"
}

// OutputPath is where a finished run reports its SVG was saved.
func OutputPath(name string) string {
	return "vectorized/" + SVGName(name)
}
