// Package media turns uploaded recipe images into stored objects.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

const keyPrefix = "recipes/"

// ErrInvalidImage marks uploads rejected for their content. Any other Save
// error comes from encoding or storage.
var ErrInvalidImage = service.ErrInvalidImage

// Storage is a flat key/value object store that serves objects under a URL.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body []byte) (string, error)
	Remove(ctx context.Context, key string) error
	// Key maps a URL produced by Put back to its key. ok is false for
	// URLs the storage does not own.
	Key(url string) (key string, ok bool)
}

// Images decodes, downscales and stores recipe images.
type Images struct {
	storage      Storage
	maxWidth     uint
	maxDimension uint
	logger       *zap.SugaredLogger
}

func NewImages(cfg *config.Config, l *zap.SugaredLogger) (*Images, error) {
	var (
		storage Storage
		err     error
	)
	switch cfg.MediaBackend {
	case config.MediaBackendS3:
		storage, err = NewS3Storage(cfg)
	default:
		storage, err = NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	}
	if err != nil {
		return nil, err
	}
	l.Infow("media storage ready", "backend", cfg.MediaBackend)

	return New(storage, cfg.MediaMaxWidth, cfg.MediaMaxDimension, l), nil
}

// New builds Images over storage. Uploads wider than maxWidth are scaled
// down; uploads with a side longer than maxDimension are rejected before
// their pixels are decoded. Zero disables either limit.
func New(storage Storage, maxWidth, maxDimension uint, l *zap.SugaredLogger) *Images {
	return &Images{
		storage:      storage,
		maxWidth:     maxWidth,
		maxDimension: maxDimension,
		logger:       l,
	}
}

// Save accepts "data:image/png;base64,..." or the jpeg equivalent and returns
// the public URL of the stored image.
func (m *Images) Save(ctx context.Context, data string) (string, error) {
	format, raw, err := decodeDataURI(data)
	if err != nil {
		return "", err
	}

	head, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(ErrInvalidImage, err.Error())
	}
	if m.maxDimension > 0 && (uint(head.Width) > m.maxDimension || uint(head.Height) > m.maxDimension) {
		return "", errors.Wrapf(ErrInvalidImage, "%dx%d exceeds %d pixels per side", head.Width, head.Height, m.maxDimension)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(ErrInvalidImage, err.Error())
	}
	if m.maxWidth > 0 && uint(img.Bounds().Dx()) > m.maxWidth {
		img = resize.Resize(m.maxWidth, 0, img, resize.Lanczos3)
	}

	buf := bytes.Buffer{}
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return "", errors.Wrap(err, "encode image")
	}

	key := keyPrefix + uuid.New().String() + "." + extension(format)
	url, err := m.storage.Put(ctx, key, "image/"+format, buf.Bytes())
	if err != nil {
		return "", errors.Wrap(err, "store image")
	}
	return url, nil
}

// Delete removes an image previously returned by Save. Foreign URLs are
// ignored.
func (m *Images) Delete(ctx context.Context, url string) error {
	key, ok := m.storage.Key(url)
	if !ok {
		m.logger.Debugw("skip deleting foreign image", "url", url)
		return nil
	}
	if err := m.storage.Remove(ctx, key); err != nil {
		return errors.Wrap(err, "remove image")
	}
	return nil
}

func decodeDataURI(data string) (string, []byte, error) {
	header, payload, found := strings.Cut(data, ",")
	if !found || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return "", nil, errors.Wrap(ErrInvalidImage, "not a base64 image data URI")
	}

	format := strings.TrimSuffix(strings.TrimPrefix(header, "data:image/"), ";base64")
	switch format {
	case "png", "jpeg", "jpg":
	default:
		return "", nil, errors.Wrapf(ErrInvalidImage, "unsupported format %q", format)
	}
	if format == "jpg" {
		format = "jpeg"
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(ErrInvalidImage, err.Error())
	}
	return format, raw, nil
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
