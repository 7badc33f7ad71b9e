package render

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/hellhand/kube/internal/assets"
)

type destroyer interface {
	Destroy()
}

// TextureCache owns one texture per path and keeps insertion order. An empty
// path resolves to the default texture.
type TextureCache[T destroyer] struct {
	defaultPath string
	create      func(path string) (T, error)
	order       []string
	textures    map[string]T
}

func NewTextureCache[T destroyer](defaultPath string, create func(path string) (T, error)) *TextureCache[T] {
	return &TextureCache[T]{
		defaultPath: defaultPath,
		create:      create,
		textures:    make(map[string]T),
	}
}

func (c *TextureCache[T]) resolve(path string) string {
	if path == "" {
		return c.defaultPath
	}
	return path
}

// Get returns the cached texture for path, creating it on first use.
func (c *TextureCache[T]) Get(path string) (T, error) {
	path = c.resolve(path)
	if t, ok := c.textures[path]; ok {
		return t, nil
	}
	t, err := c.create(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("texture %s: %w", path, err)
	}
	c.textures[path] = t
	c.order = append(c.order, path)
	return t, nil
}

func (c *TextureCache[T]) Contains(path string) bool {
	_, ok := c.textures[c.resolve(path)]
	return ok
}

// Paths lists cached paths in insertion order.
func (c *TextureCache[T]) Paths() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *TextureCache[T]) Len() int { return len(c.order) }

// Cleanup destroys every texture in insertion order and empties the cache.
func (c *TextureCache[T]) Cleanup() {
	for _, path := range c.order {
		c.textures[path].Destroy()
	}
	c.order = nil
	c.textures = make(map[string]T)
}

// decodeQueueSize bounds the tasks waiting for a decode worker.
const decodeQueueSize = 256

// newDecodePool starts the workers texture decoding runs on. They live until
// the pool is stopped, so one pool serves every load.
func newDecodePool(workers int) worker.DynamicWorkerPool {
	return worker.NewDynamicWorkerPool(max(1, workers), decodeQueueSize, 1*time.Second)
}

// decodeTextures decodes images on pool. The first error wins.
func decodeTextures(pool worker.DynamicWorkerPool, paths []string, decode func(string) (*assets.Image, error)) (map[string]*assets.Image, error) {
	if len(paths) == 0 {
		return map[string]*assets.Image{}, nil
	}
	started := time.Now()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	images := make(map[string]*assets.Image, len(paths))
	for i, path := range paths {
		wg.Add(1)
		p := path
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				img, err := decode(p)
				mu.Lock()
				defer mu.Unlock()
				// The pool only ever sees success; a failed decode is not retried.
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					return nil, nil
				}
				images[p] = img
				return img, nil
			},
		})
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	log.Printf("decoded %d texture(s) in %s", len(images), time.Since(started).Round(time.Millisecond))
	return images, nil
}
