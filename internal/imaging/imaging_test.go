// internal/imaging/imaging_test.go
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/projectstore/internal/config"
)

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{files: map[string][]byte{}}
}

func (m *memStore) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[key]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *memStore) Save(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = data
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[key]
	return ok, nil
}

func (m *memStore) List(_ context.Context, folder string) ([]File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []File
	for k, v := range m.files {
		if path.Dir(k) == folder {
			out = append(out, File{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) AvailableKey(ctx context.Context, key string) (string, error) {
	for i := 0; ; i++ {
		candidate := key
		if i > 0 {
			ext := path.Ext(key)
			candidate = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(key, ext), i, ext)
		}
		if ok, _ := m.Exists(ctx, candidate); !ok {
			return candidate, nil
		}
	}
}

func testMediaConfig() config.MediaConfig {
	return config.MediaConfig{
		MaxWidth:       100,
		MaxHeight:      100,
		Quality:        85,
		WatermarkText:  "ProjectStore",
		WatermarkAlpha: 0.5,
		KeepOriginals:  true,
	}
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTransformFitsBoundingBox(t *testing.T) {
	p := New(testMediaConfig(), newMemStore())

	out, err := p.Transform(pngBytes(t, 400, 200, color.Black))
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestTransformKeepsSmallImages(t *testing.T) {
	p := New(testMediaConfig(), newMemStore())

	out, err := p.Transform(pngBytes(t, 40, 30, color.Black))
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestTransformRejectsGarbage(t *testing.T) {
	p := New(testMediaConfig(), newMemStore())

	_, err := p.Transform([]byte("not an image"))
	assert.Error(t, err)
}

func TestWatermarkMarksImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 200, 200))
	for i := range src.Pix {
		if i%4 == 3 {
			src.Pix[i] = 255
		}
	}

	marked := Watermark(src, "ProjectStore", 0.5)

	changed := 0
	for i := 0; i < len(marked.Pix); i += 4 {
		if marked.Pix[i] != 0 || marked.Pix[i+1] != 0 || marked.Pix[i+2] != 0 {
			changed++
		}
	}
	assert.Greater(t, changed, 0)
	assert.Equal(t, src.Bounds(), marked.Bounds())

	unmarked := Watermark(src, "", 0.5)
	assert.Equal(t, src.Pix, unmarked.Pix)
}

func TestProcessImage(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := New(testMediaConfig(), store)

	raw := pngBytes(t, 300, 300, color.White)
	require.NoError(t, store.Save(ctx, "products/main/board.png", raw, "image/png"))

	key := p.ProcessImage(ctx, "products/main/board.png")
	assert.Equal(t, "products/main/board_wm.jpg", key)

	ok, _ := store.Exists(ctx, "products/main/board.png")
	assert.False(t, ok, "raw upload is replaced")

	archived, err := store.Read(ctx, "originals/products/main/board.png")
	require.NoError(t, err)
	assert.Equal(t, raw, archived)

	// An already watermarked key passes through.
	assert.Equal(t, key, p.ProcessImage(ctx, key))
}

func TestProcessImageKeepsUploadOnFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := New(testMediaConfig(), store)

	require.NoError(t, store.Save(ctx, "products/gallery/broken.png", []byte("garbage"), ""))

	key := p.ProcessImage(ctx, "products/gallery/broken.png")
	assert.Equal(t, "products/gallery/broken.png", key)

	data, err := store.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("garbage"), data)
}

func TestProcessImageDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := testMediaConfig()
	cfg.DisableTransform = true
	store := newMemStore()
	p := New(cfg, store)

	require.NoError(t, store.Save(ctx, "products/main/a.png", pngBytes(t, 10, 10, color.White), ""))
	assert.Equal(t, "products/main/a.png", p.ProcessImage(ctx, "products/main/a.png"))
}

func TestWatermarkedKey(t *testing.T) {
	assert.Equal(t, "products/main/a_wm.jpg", WatermarkedKey("products/main/a.png"))
	assert.Equal(t, "products/main/a_wm.jpg", WatermarkedKey("products/main/a_wm.jpg"))
	assert.Equal(t, "products/variants/x.y_wm.jpg", WatermarkedKey("products/variants/x.y.webp"))
	assert.True(t, IsWatermarked("products/main/a_wm.jpg"))
	assert.False(t, IsWatermarked("products/main/a.png"))
	assert.Equal(t, "originals/products/main/a.png", OriginalKey("products/main/a.png"))
}

func TestClosestName(t *testing.T) {
	name, ok := closestName("board_wm.jpg", []string{"sensor.png", "board.png", "motor.jpg"}, legacyCutoff)
	require.True(t, ok)
	assert.Equal(t, "board.png", name)

	_, ok = closestName("abc", []string{"xyz"}, legacyCutoff)
	assert.False(t, ok)

	// "abcd" and "bcde" share three of eight characters: ratio 0.75.
	_, ok = closestName("abcd", []string{"bcde"}, 0.76)
	assert.False(t, ok)
	name, ok = closestName("abcd", []string{"bcde"}, 0.75)
	require.True(t, ok)
	assert.Equal(t, "bcde", name)

	// Ties go to the greater name.
	name, ok = closestName("ab", []string{"ax", "bx"}, legacyCutoff)
	require.True(t, ok)
	assert.Equal(t, "bx", name)
}

func TestRecoverPrefersArchive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := New(testMediaConfig(), store)

	require.NoError(t, store.Save(ctx, "products/main/board_wm.jpg", []byte("marked"), ""))
	require.NoError(t, store.Save(ctx, "originals/products/main/board.png", []byte("pristine"), ""))

	data, from, err := p.Recover(ctx, "products/main/board_wm.jpg")
	require.NoError(t, err)
	assert.Equal(t, "originals/products/main/board.png", from)
	assert.Equal(t, []byte("pristine"), data)
}

func TestRecoverLegacySibling(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := New(testMediaConfig(), store)

	require.NoError(t, store.Save(ctx, "products/main/board_wm.jpg", bytes.Repeat([]byte("m"), 100), ""))
	require.NoError(t, store.Save(ctx, "products/main/board.png", bytes.Repeat([]byte("o"), 500), ""))
	require.NoError(t, store.Save(ctx, "products/main/zzzz.gif", bytes.Repeat([]byte("z"), 900), ""))
	// Too small to be an original.
	require.NoError(t, store.Save(ctx, "products/main/board_small.png", bytes.Repeat([]byte("s"), 110), ""))

	_, from, err := p.Recover(ctx, "products/main/board_wm.jpg")
	require.NoError(t, err)
	assert.Equal(t, "products/main/board.png", from)
}

func TestRecoverNothing(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := New(testMediaConfig(), store)

	require.NoError(t, store.Save(ctx, "products/main/only_wm.jpg", []byte("x"), ""))

	_, _, err := p.Recover(ctx, "products/main/only_wm.jpg")
	assert.True(t, errors.Is(err, ErrNoOriginal))
}

func TestReprocessAndBackfill(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	p := New(testMediaConfig(), store)

	require.NoError(t, store.Save(ctx, "products/variants/red.png", pngBytes(t, 50, 50, color.White), ""))

	copied, err := p.Backfill(ctx, "products/variants/red.png")
	require.NoError(t, err)
	assert.True(t, copied)
	copied, err = p.Backfill(ctx, "products/variants/red.png")
	require.NoError(t, err)
	assert.False(t, copied)

	key, recovered, err := p.Reprocess(ctx, "products/variants/red.png")
	require.NoError(t, err)
	assert.True(t, recovered)
	assert.Equal(t, "products/variants/red_wm.jpg", key)

	ok, _ := store.Exists(ctx, "products/variants/red.png")
	assert.False(t, ok)
}
