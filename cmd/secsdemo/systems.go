package main

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/oriumgames/secs"
)

var (
	windows   = secs.NewQuery(secs.With[Window]{}, secs.With[SurfaceCell]{})
	cameras   = secs.NewQuery(secs.With[Camera]{}, secs.With[CameraTransform]{})
	renderers = secs.NewQuery(secs.With[Renderer]{}, secs.With[ViewUniform]{}, secs.With[ProjUniform]{})
)

// surfaceLoader builds window surfaces off the tick goroutine and re-arms the
// ones that were dropped.
type surfaceLoader struct {
	ctx     context.Context
	log     *slog.Logger
	stats   secs.Entity
	loaders map[secs.Entity]*secs.Loader[Surface]
	gen     int
}

func newSurfaceLoader(ctx context.Context, log *slog.Logger, stats secs.Entity) *secs.System {
	l := &surfaceLoader{
		ctx:     ctx,
		log:     log,
		stats:   stats,
		loaders: make(map[secs.Entity]*secs.Loader[Surface]),
	}
	return secs.NewSystem("surface-loader", l.run).
		Writes(secs.TypeOf[SurfaceCell](), secs.TypeOf[SurfaceFlag](), secs.TypeOf[Stats]()).
		ReadsResource(secs.TypeOf[Settings]()).
		Query(windows)
}

func (l *surfaceLoader) run(v *secs.View, _ *secs.CommandBuffer) error {
	settings, err := secs.Resource[Settings](v)
	if err != nil {
		return err
	}
	stats, err := secs.Get[Stats](v, l.stats)
	if err != nil {
		return err
	}

	return windows.Each(v, func(e secs.Entity) error {
		cell := secs.MustGet[SurfaceCell](v, e)

		var state secs.LazyState
		cell.Read(func(c *secs.Lazy[Surface]) { state = c.State() })

		loader, loading := l.loaders[e]
		switch {
		case state == secs.Ready:
			return nil
		case !loading:
			if state == secs.Dropped {
				cell.Write(func(c *secs.Lazy[Surface]) { c.SetPending() })
			}
			l.loaders[e] = l.start(settings)
			return nil
		}

		var done bool
		var loadErr error
		cell.Write(func(c *secs.Lazy[Surface]) { done, loadErr = loader.Poll(c) })
		if !done {
			return nil
		}
		delete(l.loaders, e)
		if loadErr != nil {
			stats.Failures.Add(1)
			l.log.Warn("surface creation failed", "entity", e.String(), "error", loadErr)
			return nil
		}

		secs.MustGet[SurfaceFlag](v, e).Ptr().Set(true)
		stats.Rebuilds.Add(1)
		return nil
	})
}

func (l *surfaceLoader) start(s *Settings) *secs.Loader[Surface] {
	l.gen++
	gen := l.gen
	width, height, delay := s.Width, s.Height, s.LoadDelay
	return secs.Load(l.ctx, func(ctx context.Context) (Surface, error) {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
			return Surface{Width: width, Height: height, Generation: gen}, nil
		case <-ctx.Done():
			return Surface{}, ctx.Err()
		}
	}, secs.WithLoadTimeout(s.LoadTimeout))
}

// newOrbit moves every camera around its target.
func newOrbit() *secs.System {
	var angle float64
	return secs.NewSystem("camera-orbit", func(v *secs.View, _ *secs.CommandBuffer) error {
		settings, err := secs.Resource[Settings](v)
		if err != nil {
			return err
		}
		angle += float64(settings.OrbitSpeed) * settings.TickRate.Seconds()

		return cameras.Each(v, func(e secs.Entity) error {
			cam := secs.MustGet[Camera](v, e)
			eye := cam.Target.Add(mgl32.Vec3{
				cam.Radius * float32(math.Cos(angle)),
				cam.Height,
				cam.Radius * float32(math.Sin(angle)),
			})
			secs.MustGet[CameraTransform](v, e).Set(mgl32.LookAtV(eye, cam.Target, mgl32.Vec3{0, 1, 0}))
			return nil
		})
	}).
		Reads(secs.TypeOf[Camera]()).
		Writes(secs.TypeOf[CameraTransform]()).
		ReadsResource(secs.TypeOf[Settings]()).
		Query(cameras)
}

// newViewUpload copies changed camera transforms into the renderers' view uniforms.
func newViewUpload() *secs.System {
	return secs.NewSystem("view-upload", func(v *secs.View, _ *secs.CommandBuffer) error {
		return renderers.Each(v, func(e secs.Entity) error {
			r := secs.MustGet[Renderer](v, e)
			cam, err := r.Camera.Resolve(v, e)
			if err != nil {
				return err
			}
			if !cam.Changed() {
				return nil
			}
			view := cam.Value()
			secs.MustGet[ViewUniform](v, e).Get().Write(func(m *mgl32.Mat4) { *m = view })
			return nil
		})
	}).
		Reads(secs.TypeOf[Renderer](), secs.TypeOf[CameraTransform]()).
		Writes(secs.TypeOf[ViewUniform]()).
		Query(renderers)
}

// newProjectionUpload rebuilds projection uniforms for renderers whose surface changed.
func newProjectionUpload() *secs.System {
	return secs.NewSystem("projection-upload", func(v *secs.View, _ *secs.CommandBuffer) error {
		return renderers.Each(v, func(e secs.Entity) error {
			r := secs.MustGet[Renderer](v, e)
			target := r.Surface.Target(e)
			flag, err := secs.Get[SurfaceFlag](v, target)
			if err != nil {
				return err
			}
			if !flag.Ptr().Get() {
				return nil
			}
			cell, err := r.Surface.Resolve(v, e)
			if err != nil {
				return err
			}

			var surface Surface
			var ready bool
			cell.Read(func(c *secs.Lazy[Surface]) { surface, ready = c.TryValue() })
			if !ready {
				return nil
			}
			proj := mgl32.Perspective(mgl32.DegToRad(60), surface.Aspect(), 0.1, 100)
			secs.MustGet[ProjUniform](v, e).Get().Write(func(m *mgl32.Mat4) { *m = proj })
			flag.Ptr().Set(false)
			return nil
		})
	}).
		Reads(secs.TypeOf[Renderer](), secs.TypeOf[SurfaceCell]()).
		Writes(secs.TypeOf[ProjUniform](), secs.TypeOf[SurfaceFlag]()).
		Query(renderers)
}

// newRender draws every renderer whose surface is ready.
func newRender(log *slog.Logger, stats secs.Entity) *secs.System {
	return secs.NewSystem("render", func(v *secs.View, _ *secs.CommandBuffer) error {
		st, err := secs.Get[Stats](v, stats)
		if err != nil {
			return err
		}
		return renderers.Each(v, func(e secs.Entity) error {
			r := secs.MustGet[Renderer](v, e)
			cell, err := r.Surface.Resolve(v, e)
			if err != nil {
				return err
			}
			var ready bool
			cell.Read(func(c *secs.Lazy[Surface]) { ready = c.IsReady() })
			if !ready {
				st.Skipped.Add(1)
				return nil
			}

			var view, proj mgl32.Mat4
			secs.MustGet[ViewUniform](v, e).Get().Read(func(m *mgl32.Mat4) { view = *m })
			secs.MustGet[ProjUniform](v, e).Get().Read(func(m *mgl32.Mat4) { proj = *m })
			origin := proj.Mul4(view).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
			if origin.W() == 0 {
				return errors.New("degenerate view projection")
			}

			if n := st.Frames.Add(1); n%100 == 0 {
				log.Debug("frame drawn", "entity", e.String(), "frames", n, "clip", origin.Vec3().Mul(1/origin.W()))
			}
			return nil
		})
	}).
		Reads(secs.TypeOf[Renderer](), secs.TypeOf[SurfaceCell](), secs.TypeOf[ViewUniform](), secs.TypeOf[ProjUniform]()).
		Writes(secs.TypeOf[Stats]()).
		Query(renderers)
}

// newPresent clears camera change flags once every renderer saw the update.
func newPresent() *secs.System {
	return secs.NewSystem("present", func(v *secs.View, _ *secs.CommandBuffer) error {
		return cameras.Each(v, func(e secs.Entity) error {
			secs.MustGet[CameraTransform](v, e).Clear()
			return nil
		})
	}).
		Writes(secs.TypeOf[CameraTransform]()).
		Query(cameras)
}

// newStatsReport logs the counters.
func newStatsReport(log *slog.Logger, stats secs.Entity) *secs.System {
	return secs.NewSystem("stats", func(v *secs.View, _ *secs.CommandBuffer) error {
		st, err := secs.Get[Stats](v, stats)
		if err != nil {
			return err
		}
		log.Info("scene stats",
			"entities", v.Len(),
			"frames", st.Frames.Load(),
			"skipped", st.Skipped.Load(),
			"rebuilds", st.Rebuilds.Load(),
			"failures", st.Failures.Load(),
		)
		return nil
	}).Reads(secs.TypeOf[Stats]())
}

// newTickLimit calls stop after limit ticks. A limit of zero never stops.
func newTickLimit(limit int, stop context.CancelFunc) *secs.System {
	ticks := 0
	return secs.NewSystem("tick-limit", func(*secs.View, *secs.CommandBuffer) error {
		ticks++
		if limit > 0 && ticks >= limit {
			stop()
		}
		return nil
	})
}

// newResize drops the surface of window, as a resize would.
func newResize(log *slog.Logger, window secs.Entity) *secs.System {
	return secs.NewSystem("resize", func(v *secs.View, _ *secs.CommandBuffer) error {
		cell, err := secs.Get[SurfaceCell](v, window)
		if err != nil {
			return err
		}
		cell.Write(func(c *secs.Lazy[Surface]) { c.SetDropped() })
		log.Info("surface dropped", "entity", window.String())
		return nil
	}).Writes(secs.TypeOf[SurfaceCell]())
}

// newSpawnWindow adds a window through the command buffer.
func newSpawnWindow(log *slog.Logger, title string, camera secs.Entity) *secs.System {
	return secs.NewSystem("spawn-window", func(_ *secs.View, cmd *secs.CommandBuffer) error {
		e := cmd.Spawn(windowComponents(title, camera)...)
		log.Info("window queued", "entity", e.String(), "title", title)
		return nil
	})
}

type schedules struct {
	input *secs.Schedule
	frame *secs.Schedule
	stats *secs.Schedule
	limit *secs.Schedule
}

// buildSchedules assembles:
//
//	Before:  Parallel{ surface-loader, camera-orbit }
//	Default: Serial{ Parallel{ view-upload, projection-upload }, render, present }
//	After:   stats (interval), tick-limit
func buildSchedules(ctx context.Context, stop context.CancelFunc, log *slog.Logger, sc *scene, ticks, workers int) (*schedules, error) {
	input, err := secs.NewParallel("input").
		Add(newSurfaceLoader(ctx, log, sc.stats), newOrbit()).
		Workers(workers).
		Logger(log).
		Build()
	if err != nil {
		return nil, err
	}

	upload, err := secs.NewParallel("upload").
		Add(newViewUpload(), newProjectionUpload()).
		Workers(workers).
		Logger(log).
		Build()
	if err != nil {
		return nil, err
	}

	frame, err := secs.NewSerial("frame").
		Add(upload, newRender(log, sc.stats), newPresent()).
		Logger(log).
		Build()
	if err != nil {
		return nil, err
	}

	stats, err := secs.NewSerial("stats").Add(newStatsReport(log, sc.stats)).Logger(log).Build()
	if err != nil {
		return nil, err
	}
	limit, err := secs.NewSerial("limit").Add(newTickLimit(ticks, stop)).Logger(log).Build()
	if err != nil {
		return nil, err
	}

	return &schedules{input: input, frame: frame, stats: stats, limit: limit}, nil
}
