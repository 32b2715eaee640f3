// internal/imaging/pipeline.go
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp" // register the webp decoder

	"github.com/javajoker/projectstore/internal/config"
)

const (
	// OriginalsFolder holds untouched uploads, mirroring their stored keys.
	OriginalsFolder = "originals"

	watermarkSuffix = "_wm"
	outputExt       = ".jpg"
)

// File is one stored object.
type File struct {
	Key  string
	Size int64
}

// Storage is the part of the media store the pipeline needs.
type Storage interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, folder string) ([]File, error)
	AvailableKey(ctx context.Context, key string) (string, error)
}

// Pipeline resizes, watermarks and re-encodes product images.
type Pipeline struct {
	cfg   config.MediaConfig
	store Storage
}

func New(cfg config.MediaConfig, store Storage) *Pipeline {
	return &Pipeline{cfg: cfg, store: store}
}

// ProcessImage transforms the freshly stored upload at key and returns the
// key of the watermarked file. Any failure is logged and key is returned
// unchanged so the upload itself is kept.
func (p *Pipeline) ProcessImage(ctx context.Context, key string) string {
	if key == "" || p.cfg.DisableTransform || IsWatermarked(key) {
		return key
	}

	log := logrus.WithField("key", key)

	src, err := p.store.Read(ctx, key)
	if err != nil {
		log.WithError(err).Warn("Image transform skipped: cannot read upload")
		return key
	}

	if p.cfg.KeepOriginals {
		if err := p.archive(ctx, key, src); err != nil {
			log.WithError(err).Warn("Failed to archive original image")
		}
	}

	out, err := p.Transform(src)
	if err != nil {
		log.WithError(err).Warn("Image transform failed, keeping original upload")
		return key
	}

	newKey, err := p.store.AvailableKey(ctx, WatermarkedKey(key))
	if err != nil {
		log.WithError(err).Warn("Image transform skipped: no key available")
		return key
	}
	if err := p.store.Save(ctx, newKey, out, "image/jpeg"); err != nil {
		log.WithError(err).Warn("Failed to store transformed image, keeping original upload")
		return key
	}
	if err := p.store.Delete(ctx, key); err != nil {
		log.WithError(err).Warn("Failed to remove raw upload")
	}

	log.WithFields(logrus.Fields{
		"new_key":       newKey,
		"original_size": len(src),
		"size":          len(out),
	}).Info("Image watermarked")
	return newKey
}

// Transform decodes src, fits it into the configured box, stamps the
// watermark and encodes it as JPEG.
func (p *Pipeline) Transform(src []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if p.cfg.MaxWidth > 0 && p.cfg.MaxHeight > 0 {
		img = imaging.Fit(img, p.cfg.MaxWidth, p.cfg.MaxHeight, imaging.Lanczos)
	}

	// Flatten transparency onto white before the lossy encode.
	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)

	marked := Watermark(flat, p.cfg.WatermarkText, p.cfg.WatermarkAlpha)

	quality := p.cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, marked, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (p *Pipeline) archive(ctx context.Context, key string, data []byte) error {
	dst := OriginalKey(key)
	exists, err := p.store.Exists(ctx, dst)
	if err != nil || exists {
		return err
	}
	return p.store.Save(ctx, dst, data, "")
}

// Backfill copies key into the originals area if it has no twin there.
func (p *Pipeline) Backfill(ctx context.Context, key string) (bool, error) {
	if key == "" || strings.HasPrefix(key, OriginalsFolder+"/") {
		return false, nil
	}
	dst := OriginalKey(key)
	exists, err := p.store.Exists(ctx, dst)
	if err != nil || exists {
		return false, err
	}
	data, err := p.store.Read(ctx, key)
	if err != nil {
		return false, err
	}
	if err := p.store.Save(ctx, dst, data, ""); err != nil {
		return false, err
	}
	return true, nil
}

// Reprocess rebuilds the watermarked file for key from the best original
// it can find, falling back to the current file. It returns the key the
// row should now point at.
func (p *Pipeline) Reprocess(ctx context.Context, key string) (newKey string, recovered bool, err error) {
	src, from, err := p.Recover(ctx, key)
	switch {
	case err == nil:
		recovered = true
		logrus.WithFields(logrus.Fields{"key": key, "original": from}).Debug("Original recovered")
	case errors.Is(err, ErrNoOriginal):
		src, err = p.store.Read(ctx, key)
		if err != nil {
			return key, false, err
		}
	default:
		return key, false, err
	}

	out, err := p.Transform(src)
	if err != nil {
		return key, recovered, err
	}

	newKey = WatermarkedKey(key)
	if newKey != key {
		if newKey, err = p.store.AvailableKey(ctx, newKey); err != nil {
			return key, recovered, err
		}
	}
	if err := p.store.Save(ctx, newKey, out, "image/jpeg"); err != nil {
		return key, recovered, err
	}
	if newKey != key {
		if err := p.store.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to remove replaced image")
		}
	}
	return newKey, recovered, nil
}

// IsWatermarked reports whether key names a pipeline output.
func IsWatermarked(key string) bool {
	return strings.HasSuffix(stem(key), watermarkSuffix)
}

// WatermarkedKey is the output key for an upload: same folder and name,
// "_wm" suffix, .jpg extension.
func WatermarkedKey(key string) string {
	s := stem(key)
	if !strings.HasSuffix(s, watermarkSuffix) {
		s += watermarkSuffix
	}
	return path.Join(path.Dir(key), s+outputExt)
}

// OriginalKey is where the untouched copy of key is archived.
func OriginalKey(key string) string {
	return path.Join(OriginalsFolder, key)
}

func stem(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}
