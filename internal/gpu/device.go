package gpu

import (
	"errors"
	"fmt"
	"log"

	"github.com/vulkan-go/vulkan"
)

var ErrNoSuitableDevice = errors.New("no suitable GPU found")

var deviceExtensions = []string{"VK_KHR_swapchain"}

type queueFamilyIndices struct {
	graphicsFamily uint32
	presentFamily  uint32
	hasGraphics    bool
	hasPresent     bool
}

type PhysicalDevice struct {
	Handle     vulkan.PhysicalDevice
	Name       string
	Properties vulkan.PhysicalDeviceProperties
	Features   vulkan.PhysicalDeviceFeatures
	Memory     vulkan.PhysicalDeviceMemoryProperties
	queues     queueFamilyIndices
}

// deviceCandidate is what device selection looks at.
type deviceCandidate struct {
	name           string
	deviceType     vulkan.PhysicalDeviceType
	usable         bool
	geometryShader bool
}

// pickDevice returns the index of the named usable device if there is one,
// else the best scoring usable device.
func pickDevice(candidates []deviceCandidate, preferred string) (int, error) {
	best, bestScore := -1, -1
	for i, c := range candidates {
		if !c.usable || !c.geometryShader {
			continue
		}
		if preferred != "" && c.name == preferred {
			return i, nil
		}
		if score := deviceScore(c.deviceType); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return -1, ErrNoSuitableDevice
	}
	if preferred != "" {
		log.Printf("device %q not found, using %q", preferred, candidates[best].name)
	}
	return best, nil
}

func deviceScore(t vulkan.PhysicalDeviceType) int {
	switch t {
	case vulkan.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vulkan.PhysicalDeviceTypeIntegratedGpu:
		return 500
	default:
		return 100
	}
}

// SelectPhysicalDevice picks a GPU able to render and present to surface.
func SelectPhysicalDevice(instance *Instance, surface *Surface, preferred string) (*PhysicalDevice, error) {
	var count uint32
	if res := vulkan.EnumeratePhysicalDevices(instance.Handle, &count, nil); res != vulkan.Success || count == 0 {
		return nil, fmt.Errorf("enumerate physical devices: %w", ErrNoSuitableDevice)
	}
	handles := make([]vulkan.PhysicalDevice, count)
	if res := vulkan.EnumeratePhysicalDevices(instance.Handle, &count, handles); res != vulkan.Success {
		return nil, fmt.Errorf("enumerate physical devices list: %w", vulkan.Error(res))
	}

	devices := make([]*PhysicalDevice, len(handles))
	candidates := make([]deviceCandidate, len(handles))
	for i, h := range handles {
		d := &PhysicalDevice{Handle: h}
		vulkan.GetPhysicalDeviceProperties(h, &d.Properties)
		d.Properties.Deref()
		d.Properties.Limits.Deref()
		vulkan.GetPhysicalDeviceFeatures(h, &d.Features)
		d.Features.Deref()
		vulkan.GetPhysicalDeviceMemoryProperties(h, &d.Memory)
		d.Memory.Deref()
		d.Name = vulkan.ToString(d.Properties.DeviceName[:])
		d.queues = findQueueFamilies(h, surface.Handle)

		usable := d.queues.hasGraphics && d.queues.hasPresent && deviceExtensionsSupported(h)
		if usable {
			support := querySwapchainSupport(h, surface.Handle)
			usable = len(support.formats) > 0 && len(support.presentModes) > 0
		}
		devices[i] = d
		candidates[i] = deviceCandidate{
			name:           d.Name,
			deviceType:     d.Properties.DeviceType,
			usable:         usable,
			geometryShader: d.Features.GeometryShader == vulkan.True,
		}
	}

	idx, err := pickDevice(candidates, preferred)
	if err != nil {
		return nil, err
	}
	log.Printf("using GPU %q", devices[idx].Name)
	return devices[idx], nil
}

func deviceExtensionsSupported(device vulkan.PhysicalDevice) bool {
	var count uint32
	if res := vulkan.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vulkan.Success {
		return false
	}
	props := make([]vulkan.ExtensionProperties, count)
	if res := vulkan.EnumerateDeviceExtensionProperties(device, "", &count, props); res != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].ExtensionName[:])] = true
	}
	for _, ext := range deviceExtensions {
		if !supported[ext] {
			return false
		}
	}
	return true
}

func findQueueFamilies(device vulkan.PhysicalDevice, surface vulkan.Surface) queueFamilyIndices {
	var count uint32
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	props := make([]vulkan.QueueFamilyProperties, count)
	vulkan.GetPhysicalDeviceQueueFamilyProperties(device, &count, props)

	var indices queueFamilyIndices
	for i := range props {
		props[i].Deref()
		if props[i].QueueFlags&vulkan.QueueFlags(vulkan.QueueGraphicsBit) != 0 {
			indices.graphicsFamily = uint32(i)
			indices.hasGraphics = true
		}
		var present vulkan.Bool32
		vulkan.GetPhysicalDeviceSurfaceSupport(device, uint32(i), surface, &present)
		if present == vulkan.True {
			indices.presentFamily = uint32(i)
			indices.hasPresent = true
		}
		if indices.hasGraphics && indices.hasPresent {
			break
		}
	}
	return indices
}

// MinUniformBufferOffsetAlignment is the dynamic offset granularity.
func (p *PhysicalDevice) MinUniformBufferOffsetAlignment() uint64 {
	return uint64(p.Properties.Limits.MinUniformBufferOffsetAlignment)
}

func (p *PhysicalDevice) MaxImageDimension2D() int {
	return int(p.Properties.Limits.MaxImageDimension2D)
}

func (p *PhysicalDevice) SupportsDepthClamp() bool {
	return p.Features.DepthClamp == vulkan.True
}

// FindMemoryType returns the first memory type allowed by typeFilter that has
// all the requested property flags.
func (p *PhysicalDevice) FindMemoryType(typeFilter uint32, properties vulkan.MemoryPropertyFlagBits) (uint32, error) {
	flags := make([]vulkan.MemoryPropertyFlags, p.Memory.MemoryTypeCount)
	for i := range flags {
		memoryType := p.Memory.MemoryTypes[i]
		memoryType.Deref()
		flags[i] = memoryType.PropertyFlags
	}
	return memoryTypeIndex(flags, typeFilter, vulkan.MemoryPropertyFlags(properties))
}

var ErrNoMemoryType = errors.New("no suitable memory type")

func memoryTypeIndex(types []vulkan.MemoryPropertyFlags, typeFilter uint32, want vulkan.MemoryPropertyFlags) (uint32, error) {
	for i, flags := range types {
		if typeFilter&(1<<uint(i)) != 0 && flags&want == want {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("filter 0x%x flags 0x%x: %w", typeFilter, want, ErrNoMemoryType)
}

// FindSupportedFormat returns the first candidate with the features for tiling.
func (p *PhysicalDevice) FindSupportedFormat(candidates []vulkan.Format, tiling vulkan.ImageTiling, features vulkan.FormatFeatureFlags) (vulkan.Format, error) {
	for _, format := range candidates {
		var props vulkan.FormatProperties
		vulkan.GetPhysicalDeviceFormatProperties(p.Handle, format, &props)
		props.Deref()
		if tiling == vulkan.ImageTilingLinear && props.LinearTilingFeatures&features == features {
			return format, nil
		}
		if tiling == vulkan.ImageTilingOptimal && props.OptimalTilingFeatures&features == features {
			return format, nil
		}
	}
	return 0, errors.New("no supported format found")
}

type Queue struct {
	Handle vulkan.Queue
	Family uint32
}

// Submit submits one command buffer. fence may be nil.
func (q Queue) Submit(cmd *CommandBuffer, wait []*Semaphore, waitStages []vulkan.PipelineStageFlags, signal []*Semaphore, fence *Fence) error {
	submitInfo := vulkan.SubmitInfo{
		SType:                vulkan.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(wait)),
		PWaitSemaphores:      semaphoreHandles(wait),
		PWaitDstStageMask:    waitStages,
		CommandBufferCount:   1,
		PCommandBuffers:      []vulkan.CommandBuffer{cmd.Handle},
		SignalSemaphoreCount: uint32(len(signal)),
		PSignalSemaphores:    semaphoreHandles(signal),
	}
	handle := vulkan.Fence(vulkan.NullHandle)
	if fence != nil {
		handle = fence.Handle
	}
	if res := vulkan.QueueSubmit(q.Handle, 1, []vulkan.SubmitInfo{submitInfo}, handle); res != vulkan.Success {
		return fmt.Errorf("queue submit: %w", vulkan.Error(res))
	}
	return nil
}

func (q Queue) WaitIdle() {
	vulkan.QueueWaitIdle(q.Handle)
}

type Device struct {
	Physical *PhysicalDevice
	Handle   vulkan.Device
	Graphics Queue
	Present  Queue
}

// NewDevice creates the logical device with one graphics and one present
// queue. The geometry shader feature is required; depth clamp and
// anisotropy are enabled when available.
func NewDevice(physical *PhysicalDevice, validation bool) (*Device, error) {
	q := physical.queues
	uniqueFamilies := []uint32{q.graphicsFamily}
	if q.presentFamily != q.graphicsFamily {
		uniqueFamilies = append(uniqueFamilies, q.presentFamily)
	}
	queueInfos := make([]vulkan.DeviceQueueCreateInfo, 0, len(uniqueFamilies))
	for _, family := range uniqueFamilies {
		queueInfos = append(queueInfos, vulkan.DeviceQueueCreateInfo{
			SType:            vulkan.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	features := vulkan.PhysicalDeviceFeatures{
		GeometryShader:    vulkan.True,
		DepthClamp:        physical.Features.DepthClamp,
		SamplerAnisotropy: physical.Features.SamplerAnisotropy,
	}
	extensions := safeStrings(deviceExtensions)
	createInfo := vulkan.DeviceCreateInfo{
		SType:                   vulkan.StructureTypeDeviceCreateInfo,
		PQueueCreateInfos:       queueInfos,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PEnabledFeatures:        []vulkan.PhysicalDeviceFeatures{features},
		PpEnabledExtensionNames: extensions,
		EnabledExtensionCount:   uint32(len(extensions)),
	}
	if validation {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = safeStrings(validationLayers)
	}

	d := &Device{Physical: physical}
	if res := vulkan.CreateDevice(physical.Handle, &createInfo, nil, &d.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create logical device: %w", vulkan.Error(res))
	}
	d.Graphics.Family = q.graphicsFamily
	d.Present.Family = q.presentFamily
	vulkan.GetDeviceQueue(d.Handle, q.graphicsFamily, 0, &d.Graphics.Handle)
	vulkan.GetDeviceQueue(d.Handle, q.presentFamily, 0, &d.Present.Handle)
	return d, nil
}

func (d *Device) WaitIdle() {
	vulkan.DeviceWaitIdle(d.Handle)
}

func (d *Device) Destroy() {
	if d.Handle != vulkan.Device(vulkan.NullHandle) {
		vulkan.DestroyDevice(d.Handle, nil)
		d.Handle = vulkan.Device(vulkan.NullHandle)
	}
}
