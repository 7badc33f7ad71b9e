package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/hellhand/kube/internal/assets"
	"github.com/hellhand/kube/internal/config"
	"github.com/hellhand/kube/internal/render"
	"github.com/hellhand/kube/internal/scene"
	"github.com/hellhand/kube/internal/script"
	"github.com/hellhand/kube/internal/window"
)

const (
	title            = "Kube"
	defaultScenePath = "resources/scenes/cube.lua"
)

func init() {
	// GLFW/Vulkan require the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", config.DefaultFilename, "engine properties file")
	scenePath := flag.String("scene", defaultScenePath, "Lua scene script")
	flag.Parse()

	if err := run(*configPath, *scenePath); err != nil {
		log.Fatalf("kube: %v", err)
	}
}

func run(configPath, scenePath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	win, err := window.New(title, 0, 0)
	if err != nil {
		return err
	}
	defer win.Destroy()
	// Ensure the framebuffer has a non-zero size before initializing Vulkan.
	win.WaitForSize()

	sc := scene.New(scene.NewProjection(cfg.FOV, cfg.ZNear, cfg.ZFar, win.Width(), win.Height()))
	models, err := loadScene(sc, scenePath)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(cfg, win, sc)
	if err != nil {
		return fmt.Errorf("init vulkan: %w", err)
	}
	defer r.Cleanup()
	if err := r.LoadModels(models); err != nil {
		return err
	}

	log.Printf("Entering main loop")
	app := &demo{}
	now := time.Now()
	clock := newUpdateClock(cfg.UPS, now)
	fps := newFPSCounter(now)
	last := now
	for !win.ShouldClose() {
		win.PollEvents()
		now := time.Now()
		app.input(win, sc, now.Sub(last))
		if clock.tick(now) {
			app.update(sc)
		}
		if err := r.Render(); err != nil {
			return fmt.Errorf("draw frame: %w", err)
		}
		if rate, ok := fps.frame(now); ok {
			win.SetTitle(fmt.Sprintf("%s - %.1f FPS", title, rate))
		}
		last = now
	}
	return nil
}

// loadScene runs the scene script, or the built-in cube scene when the script
// does not exist, and returns the models it references.
func loadScene(sc *scene.Scene, path string) ([]assets.ModelData, error) {
	var res script.Result
	var err error
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		log.Printf("scene %s not found, using the default cube", path)
		res, err = script.Run(sc, defaultScene)
	} else {
		res, err = script.RunFile(sc, path)
	}
	if err != nil {
		return nil, err
	}
	models := make([]assets.ModelData, 0, len(res.Models))
	for _, id := range res.Models {
		m, err := builtinModel(id)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}
