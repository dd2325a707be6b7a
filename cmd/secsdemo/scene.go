package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/oriumgames/secs"
	"github.com/oriumgames/secs/internal/config"
)

// Surface is the presentation target of a window. Creating one is slow, so it
// lives in a Lazy cell and is rebuilt whenever it is dropped.
type Surface struct {
	Width      int
	Height     int
	Generation int
}

// Aspect returns width over height.
func (s Surface) Aspect() float32 {
	return float32(s.Width) / float32(s.Height)
}

// Window marks an entity that owns a surface.
type Window struct {
	Title string
}

// Camera orbits Target at Radius, Height above it.
type Camera struct {
	Target mgl32.Vec3
	Radius float32
	Height float32
}

// Renderer draws a surface from a camera's point of view. Both are reached
// through references so a renderer can sit on its window or on its own entity.
type Renderer struct {
	Surface secs.Ref[SurfaceCell]
	Camera  secs.Ref[CameraTransform]
}

// Stats counts what the frame schedule did. Systems update it concurrently.
type Stats struct {
	Frames   atomic.Uint64
	Skipped  atomic.Uint64
	Rebuilds atomic.Uint64
	Failures atomic.Uint64
}

// Settings is the read-only scene resource.
type Settings struct {
	Width       int
	Height      int
	LoadDelay   time.Duration
	LoadTimeout time.Duration
	OrbitSpeed  float32
	TickRate    time.Duration
}

// Usage tags.
type (
	surfaceChanged struct{}
	viewMatrix     struct{}
	projMatrix     struct{}
)

type (
	SurfaceCell     = secs.Shared[secs.Lazy[Surface]]
	SurfaceFlag     = secs.Tagged[surfaceChanged, secs.ChangeFlag]
	CameraTransform = secs.Tracked[mgl32.Mat4]
	ViewUniform     = secs.Tagged[viewMatrix, *secs.Shared[mgl32.Mat4]]
	ProjUniform     = secs.Tagged[projMatrix, *secs.Shared[mgl32.Mat4]]
)

// scene holds the entities spawned at startup.
type scene struct {
	camera  secs.Entity
	stats   secs.Entity
	windows []secs.Entity
}

func settingsFrom(cfg *config.Config) *Settings {
	return &Settings{
		Width:       cfg.Scene.SurfaceWidth,
		Height:      cfg.Scene.SurfaceHeight,
		LoadDelay:   cfg.GetLoadDelay(),
		LoadTimeout: cfg.GetLoadTimeout(),
		OrbitSpeed:  cfg.Scene.OrbitSpeed,
		TickRate:    cfg.GetTickRate(),
	}
}

// windowComponents returns the components of a window entity whose renderer
// looks through camera.
func windowComponents(title string, camera secs.Entity) []any {
	return []any{
		&Window{Title: title},
		secs.NewShared(secs.NewPending[Surface]()),
		&SurfaceFlag{},
		&Renderer{
			Surface: secs.Local[SurfaceCell](),
			Camera:  secs.Foreign[CameraTransform](camera),
		},
		&ViewUniform{Value: secs.NewShared(mgl32.Ident4())},
		&ProjUniform{Value: secs.NewShared(mgl32.Ident4())},
	}
}

func spawnScene(w *secs.World, cfg *config.Config) (*scene, error) {
	secs.SetResource(w, settingsFrom(cfg))

	sc := &scene{}
	var err error
	sc.camera, err = w.Spawn(
		&Camera{Radius: 10, Height: 4},
		secs.NewTracked(mgl32.Ident4(), true),
	)
	if err != nil {
		return nil, fmt.Errorf("spawning camera: %w", err)
	}

	sc.stats, err = w.Spawn(&Stats{})
	if err != nil {
		return nil, fmt.Errorf("spawning stats: %w", err)
	}

	for i := range cfg.Scene.Windows {
		e, err := w.Spawn(windowComponents(fmt.Sprintf("window-%d", i), sc.camera)...)
		if err != nil {
			return nil, fmt.Errorf("spawning window %d: %w", i, err)
		}
		sc.windows = append(sc.windows, e)
	}
	return sc, nil
}
