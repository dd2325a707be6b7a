package secs

// Handle is the process-wide, lock-protected handle to a World.
//
// Copies of the *Handle share one world. Any number of readers or a single
// writer may hold it at once: systems run under a read guard and mutate only
// component values that carry their own synchronization, while structural edits
// wait for a write guard at flush time.
type Handle struct {
	*Shared[World]
}

// NewHandle takes ownership of w and returns a handle to it.
// The caller must not use w directly afterwards.
func NewHandle(w *World) *Handle {
	if w == nil {
		w = NewWorld()
	}
	return &Handle{Shared: Wrap(w)}
}

// View calls fn with an unrestricted view while holding the read lock.
func (h *Handle) View(fn func(v *View)) {
	h.Read(func(w *World) {
		fn(w.View())
	})
}

// Update calls fn with the world while holding the write lock.
func (h *Handle) Update(fn func(w *World) error) error {
	g := h.Lock()
	defer g.Release()
	return fn(g.Get())
}
