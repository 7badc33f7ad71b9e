package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/magiconair/properties"
)

func TestFromPropertiesDefaults(t *testing.T) {
	cfg, err := FromProperties(properties.NewProperties())
	if err != nil {
		t.Fatalf("FromProperties: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("empty properties: got %+v want %+v", cfg, Default())
	}
}

func TestFromPropertiesOverrides(t *testing.T) {
	p, err := properties.LoadString(`
ups = 60
validate = true
physDeviceName = Test GPU
requestedImages = 2
vsync = false
shadowMapSize = 1024
shadowBias = 0.001
shadowPcf = true
maxMaterials = 12
fov = 90
zNear = 0.5
zFar = 250
`)
	if err != nil {
		t.Fatalf("LoadString: %v", err)
	}
	cfg, err := FromProperties(p)
	if err != nil {
		t.Fatalf("FromProperties: %v", err)
	}
	if cfg.UPS != 60 || !cfg.Validate || cfg.PhysDeviceName != "Test GPU" {
		t.Errorf("basic keys not applied: %+v", cfg)
	}
	if cfg.RequestedImages != 2 || cfg.VSync {
		t.Errorf("swapchain keys not applied: %+v", cfg)
	}
	if cfg.ShadowMapSize != 1024 || !cfg.ShadowPCF || cfg.ShadowDebug {
		t.Errorf("shadow keys not applied: %+v", cfg)
	}
	if !mgl32.FloatEqual(cfg.ShadowBias, 0.001) {
		t.Errorf("shadowBias = %v", cfg.ShadowBias)
	}
	if cfg.MaxMaterials != 12 {
		t.Errorf("maxMaterials = %d", cfg.MaxMaterials)
	}
	if !mgl32.FloatEqual(cfg.FOV, mgl32.DegToRad(90)) {
		t.Errorf("fov = %v, want radians of 90 degrees", cfg.FOV)
	}
	if cfg.ZNear != 0.5 || cfg.ZFar != 250 {
		t.Errorf("clip range = %v..%v", cfg.ZNear, cfg.ZFar)
	}
	if cfg.DefaultTexturePath != defaultDefaultTexturePath {
		t.Errorf("defaultTexturePath = %q", cfg.DefaultTexturePath)
	}
}

func TestFromPropertiesRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"zero ups", "ups = 0"},
		{"no images", "requestedImages = 0"},
		{"far before near", "zNear = 10\nzFar = 5"},
		{"negative near", "zNear = -1"},
		{"no materials", "maxMaterials = 0"},
		{"no shadow map", "shadowMapSize = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := properties.LoadString(tt.src)
			if err != nil {
				t.Fatalf("LoadString: %v", err)
			}
			if _, err := FromProperties(p); err == nil {
				t.Fatalf("expected error for %q", tt.src)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("VK_VALIDATION", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.properties"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v want defaults", cfg)
	}
}

func TestLoadAppliesValidationEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eng.properties")
	if err := os.WriteFile(path, []byte("validate=true\nups=45\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		env  string
		want bool
	}{
		{"", true},
		{"0", false},
		{"false", false},
		{"1", true},
	}
	for _, tt := range tests {
		t.Setenv("VK_VALIDATION", tt.env)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Validate != tt.want {
			t.Errorf("VK_VALIDATION=%q: validate = %v, want %v", tt.env, cfg.Validate, tt.want)
		}
		if cfg.UPS != 45 {
			t.Errorf("ups = %d, want 45", cfg.UPS)
		}
	}
}
