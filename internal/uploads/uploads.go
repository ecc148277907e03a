package uploads

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const MaxImageBytes = 5 << 20 // 5 MiB

var ErrUnsupportedImage = errors.New("only JPG/PNG/GIF allowed")

var dataURLRe = regexp.MustCompile(`^data:image/(png|jpeg|jpg|gif);base64,`)

var extByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Store writes product images under a single directory and hands back the
// public URL path for each saved file.
type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) filename(ext string) string {
	return fmt.Sprintf("product_%d%s", time.Now().UnixMilli(), ext)
}

// SaveMultipart stores an uploaded image file part. The content type decides
// the extension; anything but JPG/PNG/GIF is rejected.
func (s *Store) SaveMultipart(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	ext, ok := extByType[header.Header.Get("Content-Type")]
	if !ok {
		return "", ErrUnsupportedImage
	}

	name := s.filename(ext)
	dst, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, MaxImageBytes)); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return "/uploads/images/" + name, nil
}

// SaveDataURL stores a base64 data-URL image (the JSON create path).
func (s *Store) SaveDataURL(dataURL string) (string, error) {
	m := dataURLRe.FindString(dataURL)
	if m == "" {
		return "", ErrUnsupportedImage
	}
	ext := "." + strings.TrimSuffix(strings.TrimPrefix(m, "data:image/"), ";base64,")
	if ext == ".jpeg" {
		ext = ".jpg"
	}

	raw, err := base64.StdEncoding.DecodeString(dataURL[len(m):])
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if len(raw) > MaxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	name := s.filename(ext)
	if err := os.WriteFile(filepath.Join(s.Dir, name), raw, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return "/uploads/images/" + name, nil
}
