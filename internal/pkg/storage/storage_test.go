package storage

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeImage(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}

func TestPrepareCoverScalesWideImages(t *testing.T) {
	cover, err := PrepareCover(encodeImage(t, 2000, 1000, imaging.PNG))
	require.NoError(t, err)
	assert.Equal(t, "image/png", cover.ContentType)
	assert.Equal(t, ".png", cover.Ext)
	assert.Equal(t, MaxCoverWidth, cover.Width)
	assert.Equal(t, 800, cover.Height)

	img, err := imaging.Decode(bytes.NewReader(cover.Data))
	require.NoError(t, err)
	assert.Equal(t, MaxCoverWidth, img.Bounds().Dx())
}

func TestPrepareCoverKeepsSmallImages(t *testing.T) {
	data := encodeImage(t, 640, 480, imaging.JPEG)
	cover, err := PrepareCover(data)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", cover.ContentType)
	assert.Equal(t, ".jpg", cover.Ext)
	assert.Equal(t, data, cover.Data)
	assert.Equal(t, 640, cover.Width)
}

func TestPrepareCoverRejectsOtherTypes(t *testing.T) {
	_, err := PrepareCover([]byte("<svg xmlns='http://www.w3.org/2000/svg'></svg>"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = PrepareCover([]byte("%PDF-1.7 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestConfigURLs(t *testing.T) {
	cfg := Config{Bucket: "covers", Region: "eu-central-1"}
	assert.Equal(t, "https://covers.s3.eu-central-1.amazonaws.com/a.png", cfg.ObjectURL("a.png"))

	cfg.EndpointURL = "https://s3.example.test/"
	assert.Equal(t, "https://s3.example.test/covers/a.png", cfg.ObjectURL("a.png"))

	cfg.PublicBaseURL = "https://cdn.example.test/"
	assert.Equal(t, "https://cdn.example.test/a.png", cfg.ObjectURL("a.png"))

	assert.Equal(t, "covers/2026/03/id.png", cfg.CoverKey("id", ".png", 2026, 3))
	cfg.Prefix = "prod"
	assert.Equal(t, "prod/covers/2026/03/id.png", cfg.CoverKey("id", ".png", 2026, 3))
	assert.False(t, cfg.Configured())
}

type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	m.objects[key] = data
	m.types[key] = contentType
	return "https://cdn.test/" + key, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestCoverUploader(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
	u := NewCoverUploader(store, Config{MaxUploadBytes: 1 << 20})
	u.now = func() time.Time { return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC) }

	url, err := u.Upload(context.Background(), encodeImage(t, 100, 50, imaging.PNG))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.test/covers/2026/10/"))
	assert.True(t, strings.HasSuffix(url, ".png"))
	assert.Len(t, store.objects, 1)

	_, err = u.Upload(context.Background(), make([]byte, 2<<20))
	assert.ErrorIs(t, err, ErrTooLarge)

	var nilUploader *CoverUploader
	_, err = nilUploader.Upload(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewS3StoreRequiresConfig(t *testing.T) {
	_, err := NewS3Store(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestS3StorePut(t *testing.T) {
	var (
		mu      sync.Mutex
		method  string
		path    string
		ctype   string
		payload []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path, ctype = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		payload, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := Config{AccessKeyID: "key", SecretAccessKey: "secret", Region: "us-east-1", Bucket: "covers", EndpointURL: srv.URL}
	store, err := NewS3Store(context.Background(), cfg)
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "covers/2026/10/x.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/covers/covers/2026/10/x.png", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/covers/covers/2026/10/x.png", path)
	assert.Equal(t, "image/png", ctype)
	assert.Equal(t, "png-bytes", string(payload))
}
