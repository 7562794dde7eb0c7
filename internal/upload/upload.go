package upload

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurakKama/fullstack-mobile-app/pkg/config"
)

var cfg *config.UploadConfig

// ErrUnsupportedType is returned for files that are not images
var ErrUnsupportedType = errors.New("only image files are allowed")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Initialize injects the upload configuration and ensures the upload
// directory exists. Must be called once at startup.
func Initialize(uploadConfig *config.UploadConfig) error {
	cfg = uploadConfig
	return os.MkdirAll(cfg.Dir, 0o755)
}

// SaveImage writes the uploaded file to the upload directory under a
// server-generated name and returns the public URL path to store on the
// owning record. The client-supplied filename is never used as-is.
func SaveImage(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", ErrUnsupportedType
	}

	// Clients that declare a content type must declare an image one.
	// application/octet-stream counts as undeclared.
	contentType := file.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" &&
		!strings.HasPrefix(contentType, "image/") {
		return "", ErrUnsupportedType
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := GenerateFilename(ext)
	dst, err := os.Create(filepath.Join(cfg.Dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}

	return cfg.URLPrefix + "/" + name, nil
}

// GenerateFilename builds a collision-resistant filename from the current
// time and a random suffix, keeping only the original extension.
func GenerateFilename(ext string) string {
	return fmt.Sprintf("%d-%d%s", time.Now().UnixNano(), rand.Int63n(1_000_000_000), ext)
}
