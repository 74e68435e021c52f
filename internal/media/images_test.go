package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	buf := bytes.Buffer{}
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newLocal(t *testing.T, maxWidth uint) (*Images, string) {
	t.Helper()

	root := t.TempDir()
	storage, err := NewLocalStorage(root, "/media")
	require.NoError(t, err)
	return New(storage, maxWidth, 4096, zap.NewNop().Sugar()), root
}

func TestSaveDownscales(t *testing.T) {
	images, root := newLocal(t, 8)

	url, err := images.Save(context.Background(), pngDataURI(t, 20, 10))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/media/recipes/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	f, err := os.Open(filepath.Join(root, strings.TrimPrefix(url, "/media/")))
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 4, cfg.Height)
}

func TestSaveKeepsSmallImages(t *testing.T) {
	images, root := newLocal(t, 100)

	url, err := images.Save(context.Background(), pngDataURI(t, 20, 10))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(root, strings.TrimPrefix(url, "/media/")))
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
}

func TestSaveRejectsBadInput(t *testing.T) {
	images, _ := newLocal(t, 100)

	tests := map[string]string{
		"not a data uri": "hello",
		"wrong type":     "data:text/plain;base64,aGVsbG8=",
		"gif":            "data:image/gif;base64,R0lGOD",
		"bad base64":     "data:image/png;base64,!!!",
		"not an image":   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := images.Save(context.Background(), data)
			assert.ErrorIs(t, err, ErrInvalidImage)
		})
	}
}

// pngHeader returns a png signature and IHDR chunk declaring w x h pixels
// with no image data behind them.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 6 // RGBA

	chunk := append([]byte("IHDR"), ihdr...)
	out := []byte("\x89PNG\r\n\x1a\n")
	out = binary.BigEndian.AppendUint32(out, uint32(len(ihdr)))
	out = append(out, chunk...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(chunk))
}

func TestSaveRejectsHugeDimensions(t *testing.T) {
	images, root := newLocal(t, 100)

	data := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader(40000, 40000))
	_, err := images.Save(context.Background(), data)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.ErrorContains(t, err, "40000x40000 exceeds 4096")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type brokenStorage struct{}

func (brokenStorage) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("dial tcp s3: connection refused")
}

func (brokenStorage) Remove(context.Context, string) error { return nil }

func (brokenStorage) Key(string) (string, bool) { return "", false }

func TestSaveStorageFailureIsNotInvalidImage(t *testing.T) {
	images := New(brokenStorage{}, 100, 4096, zap.NewNop().Sugar())

	_, err := images.Save(context.Background(), pngDataURI(t, 4, 4))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidImage)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDelete(t *testing.T) {
	images, root := newLocal(t, 100)
	ctx := context.Background()

	url, err := images.Save(ctx, pngDataURI(t, 4, 4))
	require.NoError(t, err)
	path := filepath.Join(root, strings.TrimPrefix(url, "/media/"))
	require.FileExists(t, path)

	require.NoError(t, images.Delete(ctx, url))
	assert.NoFileExists(t, path)

	assert.NoError(t, images.Delete(ctx, url))
	assert.NoError(t, images.Delete(ctx, "https://elsewhere.example.org/x.png"))
}

func TestObjectBaseURL(t *testing.T) {
	assert.Equal(t, "http://minio:9000/recipes/", objectBaseURL(&config.Config{
		S3Endpoint: "http://minio:9000/",
		S3Bucket:   "recipes",
	}))
	assert.Equal(t, "https://recipes.s3.eu-west-1.amazonaws.com/", objectBaseURL(&config.Config{
		S3Bucket: "recipes",
		S3Region: "eu-west-1",
	}))
}
