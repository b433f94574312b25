package utils

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrNotImage is returned for uploads whose content is not an accepted image type.
	ErrNotImage = errors.New("uploaded file is not a supported image")
	// ErrTooLarge is returned for uploads above the configured limit.
	ErrTooLarge = errors.New("uploaded file is too large")
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// StoredFile describes a file written by AssetStore.
type StoredFile struct {
	Path        string
	URL         string
	ContentType string
	Size        int64
}

// AssetStore keeps uploaded post images on local disk under Root and publishes them below URLPrefix.
type AssetStore struct {
	Root      string
	URLPrefix string
	MaxSize   int64
}

// NewAssetStore creates a store; maxSize <= 0 means 10MB.
func NewAssetStore(root, urlPrefix string, maxSize int64) *AssetStore {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &AssetStore{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/"), MaxSize: maxSize}
}

// SaveUpload stores a multipart upload.
func (s *AssetStore) SaveUpload(fh *multipart.FileHeader) (StoredFile, error) {
	if fh.Size > s.MaxSize {
		return StoredFile{}, ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return StoredFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return s.Save(f)
}

// Save sniffs the content, rejects anything but images and writes it under
// post_images/YYYY/MM/DD with a random name.
func (s *AssetStore) Save(r io.Reader) (StoredFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.MaxSize+1))
	if err != nil {
		return StoredFile{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxSize {
		return StoredFile{}, ErrTooLarge
	}
	mt := mimetype.Detect(data)
	if !imageTypes[mt.String()] {
		return StoredFile{}, ErrNotImage
	}

	day := time.Now().UTC().Format("2006/01/02")
	name := uuid.NewString() + mt.Extension()
	dir := filepath.Join(s.Root, "post_images", filepath.FromSlash(day))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("create upload directory: %w", err)
	}
	dst := filepath.Join(dir, name)
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		_ = os.Remove(dst)
		return StoredFile{}, fmt.Errorf("write upload: %w", err)
	}

	abs, err := filepath.Abs(dst)
	if err != nil {
		abs = dst
	}
	return StoredFile{
		Path:        abs,
		URL:         path.Join(s.URLPrefix, "post_images", day, name),
		ContentType: mt.String(),
		Size:        int64(len(data)),
	}, nil
}

// Remove deletes a stored file; a file that is already gone is not an error.
func (s *AssetStore) Remove(filePath string) error {
	if filePath == "" {
		return nil
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
