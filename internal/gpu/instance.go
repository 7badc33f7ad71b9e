// Package gpu wraps the Vulkan objects the render passes are built from.
package gpu

import (
	"errors"
	"fmt"
	"log"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

type Instance struct {
	Handle        vulkan.Instance
	Validation    bool
	debugCallback vulkan.DebugReportCallback
}

// NewInstance loads the Vulkan loader through procAddr and creates an
// instance with the given window-system extensions. Validation is turned off
// with a warning when the layers are not installed.
func NewInstance(procAddr unsafe.Pointer, extensions []string, validate bool) (*Instance, error) {
	vulkan.SetGetInstanceProcAddr(procAddr)
	if err := vulkan.Init(); err != nil {
		return nil, fmt.Errorf("vulkan init: %w", err)
	}

	if validate && !validationLayersSupported() {
		log.Printf("validation requested but %v not available, continuing without it", validationLayers)
		validate = false
	}

	appInfo := vulkan.ApplicationInfo{
		SType:              vulkan.StructureTypeApplicationInfo,
		PApplicationName:   "Kube\x00",
		ApplicationVersion: vulkan.MakeVersion(0, 2, 0),
		PEngineName:        "Kube\x00",
		EngineVersion:      vulkan.MakeVersion(0, 2, 0),
		ApiVersion:         vulkan.MakeVersion(1, 1, 0),
	}

	if validate {
		extensions = append(extensions, "VK_EXT_debug_report")
	}
	extensions = safeStrings(extensions)

	createInfo := vulkan.InstanceCreateInfo{
		SType:                   vulkan.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
	}
	if validate {
		createInfo.EnabledLayerCount = uint32(len(validationLayers))
		createInfo.PpEnabledLayerNames = safeStrings(validationLayers)
	}

	inst := &Instance{Validation: validate}
	if res := vulkan.CreateInstance(&createInfo, nil, &inst.Handle); res != vulkan.Success {
		return nil, fmt.Errorf("create instance: %w", vulkan.Error(res))
	}
	if err := vulkan.InitInstance(inst.Handle); err != nil {
		vulkan.DestroyInstance(inst.Handle, nil)
		return nil, fmt.Errorf("init instance: %w", err)
	}
	if validate {
		if err := inst.setupDebugCallback(); err != nil {
			inst.Destroy()
			return nil, err
		}
	}
	return inst, nil
}

func validationLayersSupported() bool {
	var count uint32
	if vulkan.EnumerateInstanceLayerProperties(&count, nil) != vulkan.Success {
		return false
	}
	props := make([]vulkan.LayerProperties, count)
	if vulkan.EnumerateInstanceLayerProperties(&count, props) != vulkan.Success {
		return false
	}
	supported := make(map[string]bool)
	for i := range props {
		props[i].Deref()
		supported[vulkan.ToString(props[i].LayerName[:])] = true
	}
	for _, l := range validationLayers {
		if !supported[l] {
			return false
		}
	}
	return true
}

func (i *Instance) setupDebugCallback() error {
	createInfo := vulkan.DebugReportCallbackCreateInfo{
		SType: vulkan.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vulkan.DebugReportFlags(
			vulkan.DebugReportErrorBit |
				vulkan.DebugReportWarningBit |
				vulkan.DebugReportPerformanceWarningBit),
		PfnCallback: func(flags vulkan.DebugReportFlags, objectType vulkan.DebugReportObjectType, object uint64, location uint, messageCode int32, layerPrefix string, message string, userData unsafe.Pointer) vulkan.Bool32 {
			log.Printf("[VK][%s][0x%x] %s (code=%d)", layerPrefix, flags, message, messageCode)
			return vulkan.False
		},
	}
	if res := vulkan.CreateDebugReportCallback(i.Handle, &createInfo, nil, &i.debugCallback); res != vulkan.Success {
		return fmt.Errorf("create debug callback: %w", vulkan.Error(res))
	}
	return nil
}

func (i *Instance) Destroy() {
	if i.debugCallback != vulkan.DebugReportCallback(vulkan.NullHandle) {
		vulkan.DestroyDebugReportCallback(i.Handle, i.debugCallback, nil)
		i.debugCallback = vulkan.DebugReportCallback(vulkan.NullHandle)
	}
	if i.Handle != vulkan.Instance(vulkan.NullHandle) {
		vulkan.DestroyInstance(i.Handle, nil)
		i.Handle = vulkan.Instance(vulkan.NullHandle)
	}
}

// Surface is a presentation surface created by the window system.
type Surface struct {
	instance *Instance
	Handle   vulkan.Surface
}

func NewSurface(instance *Instance, handle vulkan.Surface) (*Surface, error) {
	if handle == vulkan.Surface(vulkan.NullHandle) {
		return nil, errors.New("null surface handle")
	}
	return &Surface{instance: instance, Handle: handle}, nil
}

func (s *Surface) Destroy() {
	if s.Handle != vulkan.Surface(vulkan.NullHandle) {
		vulkan.DestroySurface(s.instance.Handle, s.Handle, nil)
		s.Handle = vulkan.Surface(vulkan.NullHandle)
	}
}
