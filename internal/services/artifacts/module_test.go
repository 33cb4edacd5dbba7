package artifacts

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/admin/ai-studio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemS3() *memS3 {
	return &memS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memS3) GetFile(_ context.Context, path string) ([]byte, error) {
	return m.objects[path], nil
}

func (m *memS3) PutFile(_ context.Context, path string, body io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	m.objects[path] = buf.Bytes()
	m.types[path] = contentType
	return nil
}

func (m *memS3) ListFiles(context.Context, string) ([]string, error) { return nil, nil }

func (m *memS3) GetPresignedURL(_ context.Context, path string, expires time.Duration) (string, error) {
	return "https://s3.local/" + path + "?ttl=" + expires.String(), nil
}

func TestService_Save(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	s3 := newMemS3()
	s := New(s3, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	key, err := s.Save(context.Background(), "images/u1/a1", srv.URL+"/out/result.PNG?sig=abc")
	require.NoError(t, err)
	assert.Equal(t, "images/u1/a1.png", key)
	assert.Equal(t, []byte("png-bytes"), s3.objects[key])
	assert.Equal(t, "image/png", s3.types[key])

	url, err := s.URL(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.local/images/u1/a1.png?ttl=1h0m0s", url)
}

func TestService_Save_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	s3 := newMemS3()
	s := New(s3, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := s.Save(context.Background(), "images/u1/a1", srv.URL+"/expired.png")
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Empty(t, s3.objects)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".mp4", extension("https://cdn/x/video.mp4?token=1"))
	assert.Equal(t, "", extension("https://cdn/x/blob"))
	assert.Equal(t, "", extension("https://cdn/x/weird.extension-too-long"))
}
