package render

import (
	"fmt"
	"log"
	"runtime"
	"unsafe"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/vulkan-go/vulkan"

	"github.com/hellhand/kube/internal/assets"
	"github.com/hellhand/kube/internal/config"
	"github.com/hellhand/kube/internal/gpu"
	"github.com/hellhand/kube/internal/scene"
)

// SurfaceWindow is a Window able to host a Vulkan surface.
type SurfaceWindow interface {
	Window
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vulkan.Instance) (vulkan.Surface, error)
}

// Renderer owns every GPU object and drives frames for one window.
type Renderer struct {
	cfg config.Config

	instance  *gpu.Instance
	surface   *gpu.Surface
	device    *gpu.Device
	swapchain *gpu.Swapchain
	cmdPool   *gpu.CommandPool
	cache     *gpu.PipelineCache

	geometry *GeometryPass
	shadow   *ShadowPass
	lighting *LightingPass

	textures   *TextureCache[*gpu.Texture]
	decoded    map[string]*assets.Image
	decodePool worker.DynamicWorkerPool
	ids      MaterialIDs
	models   []*Model

	frames *frameLoop
}

func NewRenderer(cfg config.Config, window SurfaceWindow, sc *scene.Scene) (*Renderer, error) {
	r := &Renderer{cfg: cfg}
	if err := r.init(window, sc); err != nil {
		r.Cleanup()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init(window SurfaceWindow, sc *scene.Scene) error {
	var err error
	if r.instance, err = gpu.NewInstance(window.InstanceProcAddr(), window.RequiredInstanceExtensions(), r.cfg.Validate); err != nil {
		return err
	}
	handle, err := window.CreateSurface(r.instance.Handle)
	if err != nil {
		return fmt.Errorf("create surface: %w", err)
	}
	if r.surface, err = gpu.NewSurface(r.instance, handle); err != nil {
		return err
	}
	physical, err := gpu.SelectPhysicalDevice(r.instance, r.surface, r.cfg.PhysDeviceName)
	if err != nil {
		return err
	}
	if r.device, err = gpu.NewDevice(physical, r.instance.Validation); err != nil {
		return err
	}
	if r.swapchain, err = gpu.NewSwapchain(r.device, r.surface, window, r.cfg.RequestedImages, r.cfg.VSync); err != nil {
		return err
	}
	if r.cmdPool, err = gpu.NewCommandPool(r.device, r.device.Graphics.Family); err != nil {
		return err
	}
	if r.cache, err = gpu.NewPipelineCache(r.device); err != nil {
		return err
	}

	if r.geometry, err = NewGeometryPass(r.cfg, r.swapchain, r.device, r.cmdPool, r.cache, sc.Projection().Matrix()); err != nil {
		return err
	}
	if r.shadow, err = NewShadowPass(r.cfg, r.swapchain, r.device, r.cache); err != nil {
		return err
	}
	if r.lighting, err = NewLightingPass(r.cfg, r.swapchain, r.device, r.cmdPool, r.cache, lightingInputs(r.geometry, r.shadow)); err != nil {
		return err
	}

	r.textures = NewTextureCache(r.cfg.DefaultTexturePath, r.createTexture)
	r.decodePool = newDecodePool(runtime.NumCPU())
	r.frames = &frameLoop{
		window:         window,
		scene:          sc,
		presenter:      swapchainPresenter{swapchain: r.swapchain, queue: r.device.Present},
		geometry:       r.geometry,
		shadow:         r.shadow,
		lighting:       r.lighting,
		waitIdle:       r.device.WaitIdle,
		materialStride: r.geometry.MaterialStride(),
	}
	log.Printf("renderer ready: %d swapchain images, %dx%d", r.swapchain.NumImages(), r.swapchain.Extent().Width, r.swapchain.Extent().Height)
	return nil
}

// createTexture uploads a texture decoded by LoadModels, decoding it here
// only when it was not decoded ahead of time.
func (r *Renderer) createTexture(path string) (*gpu.Texture, error) {
	img, ok := r.decoded[path]
	if !ok {
		var err error
		if img, err = assets.LoadImage(path); err != nil {
			return nil, err
		}
	}
	return gpu.NewTexture(r.device, r.cmdPool, r.device.Graphics, path, img)
}

func (r *Renderer) uploadMesh(data assets.MeshData) (*Mesh, error) {
	vertices, err := gpu.NewDeviceBuffer(r.device, r.cmdPool, r.device.Graphics,
		vulkan.BufferUsageVertexBufferBit, gpu.Float32Bytes(data.Interleave()))
	if err != nil {
		return nil, fmt.Errorf("vertex buffer: %w", err)
	}
	indices, err := gpu.NewDeviceBuffer(r.device, r.cmdPool, r.device.Graphics,
		vulkan.BufferUsageIndexBufferBit, gpu.Uint32Bytes(data.Indices))
	if err != nil {
		vertices.Destroy()
		return nil, fmt.Errorf("index buffer: %w", err)
	}
	return &Mesh{Vertices: vertices, Indices: indices, IndexCount: uint32(len(data.Indices))}, nil
}

// LoadModels uploads models and registers their materials with the geometry
// and shadow passes. Textures are decoded in parallel before any upload.
func (r *Renderer) LoadModels(data []assets.ModelData) error {
	log.Printf("loading %d model(s)", len(data))
	models, ids, err := buildModels(r.ids, data, r.cfg.MaxMaterials, r.cfg.DefaultTexturePath, r.uploadMesh)
	if err != nil {
		return err
	}
	discard := func() { destroyModels(models) }

	var pending []string
	for _, p := range texturePaths(models) {
		if !r.textures.Contains(p) {
			pending = append(pending, p)
		}
	}
	decoded, err := decodeTextures(r.decodePool, pending, assets.LoadImage)
	if err != nil {
		discard()
		return err
	}
	r.decoded = decoded
	defer func() { r.decoded = nil }()

	if err := r.geometry.RegisterModels(models, r.textures); err != nil {
		discard()
		return err
	}
	if err := r.shadow.RegisterModels(models, r.textures); err != nil {
		discard()
		return err
	}
	r.ids = ids
	r.models = append(r.models, models...)
	r.frames.models = r.models
	r.device.WaitIdle()
	log.Printf("loaded %d model(s), %d material(s), %d texture(s)", len(models), r.ids.Count(), r.textures.Len())
	return nil
}

// Render draws and presents one frame of the scene.
func (r *Renderer) Render() error {
	return r.frames.render()
}

// Cleanup waits for the GPU and destroys everything in reverse creation order.
func (r *Renderer) Cleanup() {
	if r.device != nil {
		r.device.WaitIdle()
	}
	if r.decodePool != nil {
		r.decodePool.Stop()
		r.decodePool = nil
	}
	if r.lighting != nil {
		r.lighting.Cleanup()
	}
	if r.shadow != nil {
		r.shadow.Cleanup()
	}
	if r.geometry != nil {
		r.geometry.Cleanup()
	}
	for _, m := range r.models {
		m.Destroy()
	}
	r.models = nil
	if r.textures != nil {
		r.textures.Cleanup()
	}
	if r.cache != nil {
		r.cache.Destroy()
	}
	if r.cmdPool != nil {
		r.cmdPool.Destroy()
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
	}
	if r.device != nil {
		r.device.Destroy()
	}
	if r.surface != nil {
		r.surface.Destroy()
	}
	if r.instance != nil {
		r.instance.Destroy()
	}
}
