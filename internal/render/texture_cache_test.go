package render

import (
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/hellhand/kube/internal/assets"
)

func newTestPool(t *testing.T, workers int) worker.DynamicWorkerPool {
	t.Helper()
	pool := newDecodePool(workers)
	t.Cleanup(pool.Stop)
	return pool
}

type fakeTexture struct {
	path      string
	destroyed *[]string
}

func (f fakeTexture) Destroy() { *f.destroyed = append(*f.destroyed, f.path) }

func newFakeCache(created *[]string, destroyed *[]string) *TextureCache[fakeTexture] {
	return NewTextureCache(testDefaultTexture, func(path string) (fakeTexture, error) {
		if strings.HasPrefix(path, "bad") {
			return fakeTexture{}, errors.New("cannot decode")
		}
		*created = append(*created, path)
		return fakeTexture{path: path, destroyed: destroyed}, nil
	})
}

func TestTextureCacheDedupesAndKeepsOrder(t *testing.T) {
	var created, destroyed []string
	c := newFakeCache(&created, &destroyed)

	for _, p := range []string{"b.png", "a.png", "b.png", "", "a.png", testDefaultTexture} {
		if _, err := c.Get(p); err != nil {
			t.Fatalf("Get(%q): %v", p, err)
		}
	}
	want := []string{"b.png", "a.png", testDefaultTexture}
	if !slices.Equal(created, want) {
		t.Errorf("created = %v, want %v", created, want)
	}
	if !slices.Equal(c.Paths(), want) {
		t.Errorf("Paths = %v, want %v", c.Paths(), want)
	}
	if c.Len() != 3 || !c.Contains("") || c.Contains("c.png") {
		t.Errorf("Len/Contains wrong: len=%d", c.Len())
	}

	c.Cleanup()
	if !slices.Equal(destroyed, want) {
		t.Errorf("destroyed = %v, want %v", destroyed, want)
	}
	if c.Len() != 0 {
		t.Errorf("cache not empty after Cleanup")
	}
}

func TestTextureCacheCreateError(t *testing.T) {
	var created, destroyed []string
	c := newFakeCache(&created, &destroyed)
	if _, err := c.Get("bad.png"); err == nil {
		t.Fatal("expected error")
	}
	if c.Contains("bad.png") || c.Len() != 0 {
		t.Fatal("failed texture must not be cached")
	}
}

func TestDecodeTextures(t *testing.T) {
	var calls atomic.Int32
	decode := func(path string) (*assets.Image, error) {
		calls.Add(1)
		return &assets.Image{Width: len(path), Height: 1}, nil
	}
	paths := []string{"a.png", "bb.png", "ccc.png", "dddd.png"}
	images, err := decodeTextures(newTestPool(t, 2), paths, decode)
	if err != nil {
		t.Fatalf("decodeTextures: %v", err)
	}
	if int(calls.Load()) != len(paths) || len(images) != len(paths) {
		t.Fatalf("decoded %d images with %d calls", len(images), calls.Load())
	}
	for _, p := range paths {
		if images[p] == nil || images[p].Width != len(p) {
			t.Errorf("image for %s = %+v", p, images[p])
		}
	}
}

func TestDecodeTexturesError(t *testing.T) {
	boom := errors.New("boom")
	decode := func(path string) (*assets.Image, error) {
		if path == "broken.png" {
			return nil, boom
		}
		return &assets.Image{}, nil
	}
	_, err := decodeTextures(newTestPool(t, 3), []string{"ok.png", "broken.png", "fine.png"}, decode)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestDecodeTexturesEmpty(t *testing.T) {
	images, err := decodeTextures(newTestPool(t, 4), nil, func(string) (*assets.Image, error) {
		t.Fatal("decode should not be called")
		return nil, nil
	})
	if err != nil || len(images) != 0 {
		t.Fatalf("got %v, %v", images, err)
	}
}

func TestDecodeTexturesReusesPoolWorkers(t *testing.T) {
	const workers = 4
	before := runtime.NumGoroutine()
	pool := newTestPool(t, workers)
	decode := func(string) (*assets.Image, error) { return &assets.Image{}, nil }
	for range 5 {
		if _, err := decodeTextures(pool, []string{"a.png", "b.png", "c.png", "d.png"}, decode); err != nil {
			t.Fatalf("decodeTextures: %v", err)
		}
	}
	if after := runtime.NumGoroutine(); after > before+workers {
		t.Fatalf("goroutines grew from %d to %d across loads, want at most %d more", before, after, workers)
	}
}
