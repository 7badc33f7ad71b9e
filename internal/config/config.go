// Package config loads the engine settings from a properties file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/magiconair/properties"
)

const (
	DefaultFilename = "resources/eng.properties"

	defaultUPS                = 30
	defaultRequestedImages    = 3
	defaultShadowMapSize      = 2048
	defaultShadowBias         = 0.00005
	defaultMaxMaterials       = 500
	defaultFOVDegrees         = 60.0
	defaultZNear              = 1.0
	defaultZFar               = 100.0
	defaultDefaultTexturePath = "resources/models/default/default.png"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	UPS                 int
	Validate            bool
	PhysDeviceName      string
	RequestedImages     int
	VSync               bool
	ShaderRecompilation bool

	ShadowMapSize int
	ShadowBias    float32
	ShadowPCF     bool
	ShadowDebug   bool

	MaxMaterials int

	// FOV is in radians.
	FOV   float32
	ZNear float32
	ZFar  float32

	DefaultTexturePath string
}

func Default() Config {
	return Config{
		UPS:                defaultUPS,
		RequestedImages:    defaultRequestedImages,
		VSync:              true,
		ShadowMapSize:      defaultShadowMapSize,
		ShadowBias:         defaultShadowBias,
		MaxMaterials:       defaultMaxMaterials,
		FOV:                mgl32.DegToRad(defaultFOVDegrees),
		ZNear:              defaultZNear,
		ZFar:               defaultZFar,
		DefaultTexturePath: defaultDefaultTexturePath,
	}
}

// Load reads path and applies environment overrides. A missing file is not an
// error: defaults are used instead.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Printf("config %s not found, using defaults", path)
		cfg := Default()
		applyEnv(&cfg)
		return cfg, nil
	}
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg, err := FromProperties(p)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

// FromProperties maps property keys onto a Config. Absent keys keep their
// defaults.
func FromProperties(p *properties.Properties) (Config, error) {
	def := Default()
	cfg := Config{
		UPS:                 p.GetInt("ups", def.UPS),
		Validate:            p.GetBool("validate", def.Validate),
		PhysDeviceName:      p.GetString("physDeviceName", def.PhysDeviceName),
		RequestedImages:     p.GetInt("requestedImages", def.RequestedImages),
		VSync:               p.GetBool("vsync", def.VSync),
		ShaderRecompilation: p.GetBool("shaderRecompilation", def.ShaderRecompilation),
		ShadowMapSize:       p.GetInt("shadowMapSize", def.ShadowMapSize),
		ShadowBias:          float32(p.GetFloat64("shadowBias", float64(def.ShadowBias))),
		ShadowPCF:           p.GetBool("shadowPcf", def.ShadowPCF),
		ShadowDebug:         p.GetBool("shadowDebug", def.ShadowDebug),
		MaxMaterials:        p.GetInt("maxMaterials", def.MaxMaterials),
		FOV:                 mgl32.DegToRad(float32(p.GetFloat64("fov", defaultFOVDegrees))),
		ZNear:               float32(p.GetFloat64("zNear", float64(def.ZNear))),
		ZFar:                float32(p.GetFloat64("zFar", float64(def.ZFar))),
		DefaultTexturePath:  p.GetString("defaultTexturePath", def.DefaultTexturePath),
	}
	if err := cfg.Check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Check reports settings the renderer cannot work with.
func (c Config) Check() error {
	switch {
	case c.UPS <= 0:
		return fmt.Errorf("ups must be positive, got %d", c.UPS)
	case c.RequestedImages <= 0:
		return fmt.Errorf("requestedImages must be positive, got %d", c.RequestedImages)
	case c.ShadowMapSize <= 0:
		return fmt.Errorf("shadowMapSize must be positive, got %d", c.ShadowMapSize)
	case c.MaxMaterials <= 0:
		return fmt.Errorf("maxMaterials must be positive, got %d", c.MaxMaterials)
	case c.ZNear <= 0 || c.ZFar <= c.ZNear:
		return fmt.Errorf("invalid clip range near=%v far=%v", c.ZNear, c.ZFar)
	case c.FOV <= 0:
		return fmt.Errorf("fov must be positive, got %v", c.FOV)
	}
	return nil
}

// applyEnv lets VK_VALIDATION force validation layers on or off.
func applyEnv(cfg *Config) {
	val, ok := os.LookupEnv("VK_VALIDATION")
	if !ok || val == "" {
		return
	}
	switch val {
	case "0", "false", "False", "FALSE":
		cfg.Validate = false
	default:
		cfg.Validate = true
	}
}
