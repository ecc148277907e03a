package uploads

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
	0x44, 0xae, 0x42, 0x60, 0x82,
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveDataURL(t *testing.T) {
	s := newTestStore(t)

	url, err := s.SaveDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/images/product_"), "got %q", url)
	assert.True(t, strings.HasSuffix(url, ".png"), "got %q", url)

	saved, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, saved)
}

func TestSaveDataURLJpegGetsJpgExt(t *testing.T) {
	s := newTestStore(t)

	url, err := s.SaveDataURL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff}))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".jpg"), "got %q", url)
}

func TestSaveDataURLRejections(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name string
		in   string
	}{
		{"not a data url", "http://example.com/cat.png"},
		{"unsupported type", "data:image/webp;base64,aGk="},
		{"bad base64", "data:image/png;base64,@@@@"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SaveDataURL(tc.in)
			assert.Error(t, err)
		})
	}
}

func TestSaveDataURLRejectsOversize(t *testing.T) {
	s := newTestStore(t)

	big := make([]byte, MaxImageBytes+1)
	_, err := s.SaveDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(big))
	assert.ErrorContains(t, err, "exceeds")
}

func multipartImage(t *testing.T, contentType string, data []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="upload.bin"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(MaxImageBytes))

	file, header, err := req.FormFile("image")
	require.NoError(t, err)
	return file, header
}

func TestSaveMultipart(t *testing.T) {
	s := newTestStore(t)

	file, header := multipartImage(t, "image/png", tinyPNG)
	defer file.Close()

	url, err := s.SaveMultipart(file, header)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, ".png"), "got %q", url)

	saved, err := os.ReadFile(filepath.Join(s.Dir, filepath.Base(url)))
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, saved)
}

func TestSaveMultipartRejectsUnsupportedType(t *testing.T) {
	s := newTestStore(t)

	file, header := multipartImage(t, "application/pdf", []byte("%PDF-1.4"))
	defer file.Close()

	_, err := s.SaveMultipart(file, header)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}
