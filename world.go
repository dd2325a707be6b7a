package secs

import (
	"fmt"
	"log/slog"
	"reflect"
	"unsafe"

	"github.com/google/uuid"
)

// World stores entities, their components and a table of resources.
//
// A World is not synchronized. Mutating methods (Spawn, Despawn, Insert, Remove,
// SetResource) need exclusive access: call them before the world is shared, under
// a write guard, or defer them through a CommandBuffer. Reads go through a Reader.
type World struct {
	id       uuid.UUID
	log      *slog.Logger
	ids      *IDAllocator
	registry *componentRegistry

	entities []entityRecord
	alive    int

	resources map[reflect.Type]unsafe.Pointer

	// version changes on every structural edit; query caches compare against it.
	version uint64

	full View
}

// entityRecord is the storage slot for one entity ID.
type entityRecord struct {
	gen        uint32
	alive      bool
	mask       Bitmask
	components []unsafe.Pointer
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithWorldLogger sets the logger used by the world.
func WithWorldLogger(l *slog.Logger) WorldOption {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// WithAllocator makes the world draw entity IDs from a.
func WithAllocator(a *IDAllocator) WorldOption {
	return func(w *World) {
		if a != nil {
			w.ids = a
		}
	}
}

// NewWorld creates an empty world.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		id:        uuid.New(),
		log:       slog.Default(),
		ids:       NewIDAllocator(),
		registry:  newComponentRegistry(),
		resources: make(map[reflect.Type]unsafe.Pointer),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("world", w.id.String())
	w.full = View{w: w}
	return w
}

// ID returns the world's unique identifier.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Logger returns the world's logger.
func (w *World) Logger() *slog.Logger {
	return w.log
}

// Allocator returns the allocator that issues entity IDs.
func (w *World) Allocator() *IDAllocator {
	return w.ids
}

// Version returns the structural version. It changes whenever an entity or a
// component is added or removed.
func (w *World) Version() uint64 {
	return w.version
}

// View returns an unrestricted read view of the world.
func (w *World) View() *View {
	return &w.full
}

func (w *World) view() *View {
	return &w.full
}

// Spawn creates an entity carrying the given components.
// Each component must be a non-nil pointer; its pointee type is the component type.
func (w *World) Spawn(components ...any) (Entity, error) {
	e := w.ids.Alloc()
	if err := w.spawnReserved(e, components); err != nil {
		w.ids.Free(e)
		return Entity{}, err
	}
	return e, nil
}

// spawnReserved materializes an entity whose ID was reserved through the allocator.
func (w *World) spawnReserved(e Entity, components []any) error {
	if !w.ids.Current(e) {
		return fmt.Errorf("secs: spawn %v: %w", e, ErrNoSuchEntity)
	}
	for _, c := range components {
		if _, _, err := componentOf(c); err != nil {
			return err
		}
	}

	for int(e.ID) >= len(w.entities) {
		w.entities = append(w.entities, entityRecord{})
	}
	rec := &w.entities[e.ID]
	if rec.alive {
		return fmt.Errorf("secs: spawn %v: already alive", e)
	}
	*rec = entityRecord{gen: e.Gen, alive: true}
	w.alive++
	w.version++

	for _, c := range components {
		t, ptr, _ := componentOf(c)
		if err := w.insert(e, t, ptr); err != nil {
			return err
		}
	}
	return nil
}

// Despawn removes e and all of its components.
func (w *World) Despawn(e Entity) error {
	rec, err := w.record(e)
	if err != nil {
		return err
	}
	for i, ptr := range rec.components {
		if ptr == nil {
			continue
		}
		rec.components[i] = nil
		w.detach(e, w.registry.typeOf(ComponentID(i)), ptr)
	}
	rec.alive = false
	rec.mask = Bitmask{}
	rec.components = nil
	w.alive--
	w.version++
	w.ids.Free(e)
	return nil
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool {
	_, err := w.record(e)
	return err == nil
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.alive
}

// record returns the storage slot of a live entity.
func (w *World) record(e Entity) (*entityRecord, error) {
	if int(e.ID) >= len(w.entities) {
		return nil, ErrNoSuchEntity
	}
	rec := &w.entities[e.ID]
	if !rec.alive || rec.gen != e.Gen {
		return nil, ErrNoSuchEntity
	}
	return rec, nil
}

func (w *World) insert(e Entity, t reflect.Type, ptr unsafe.Pointer) error {
	rec, err := w.record(e)
	if err != nil {
		return &ResolveError{Entity: e, Type: t, Err: err}
	}
	id := w.registry.register(t)
	if int(id) >= len(rec.components) {
		grown := make([]unsafe.Pointer, w.registry.count())
		copy(grown, rec.components)
		rec.components = grown
	}

	if old := rec.components[id]; old != nil {
		rec.components[id] = nil
		w.detach(e, t, old)
	} else {
		w.version++
	}
	rec.components[id] = ptr
	rec.mask.Set(id)

	if a, ok := reflect.NewAt(t, ptr).Interface().(Attachable); ok {
		a.Attach(w, e)
	}
	return nil
}

func (w *World) remove(e Entity, t reflect.Type) error {
	rec, err := w.record(e)
	if err != nil {
		return &ResolveError{Entity: e, Type: t, Err: err}
	}
	id, ok := w.registry.lookup(t)
	if !ok || !rec.mask.Has(id) {
		return &ResolveError{Entity: e, Type: t, Err: ErrNoSuchComponent}
	}
	ptr := rec.components[id]
	rec.components[id] = nil
	rec.mask.Clear(id)
	w.version++
	w.detach(e, t, ptr)
	return nil
}

func (w *World) detach(e Entity, t reflect.Type, ptr unsafe.Pointer) {
	if d, ok := reflect.NewAt(t, ptr).Interface().(Detachable); ok {
		d.Detach(w, e)
	}
}

// componentOf splits a component pointer into its pointee type and address.
func componentOf(c any) (reflect.Type, unsafe.Pointer, error) {
	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, nil, fmt.Errorf("secs: component must be a non-nil pointer, got %T", c)
	}
	return v.Type().Elem(), v.UnsafePointer(), nil
}

// SetResource stores r as the world's resource of type T, replacing any previous one.
func SetResource[T any](w *World, r *T) {
	w.resources[reflect.TypeFor[T]()] = unsafe.Pointer(r)
}

// RemoveResource deletes the resource of type T.
func RemoveResource[T any](w *World) {
	delete(w.resources, reflect.TypeFor[T]())
}

// Resource returns the world's resource of type T.
//
// Resources are read-only once the world is shared. State that systems must
// mutate belongs on a singleton entity instead.
func Resource[T any](r Reader) (*T, error) {
	v := r.view()
	t := reflect.TypeFor[T]()
	if v.restricted {
		if _, ok := v.resources[t]; !ok {
			return nil, fmt.Errorf("secs: resource %v: %w", t, ErrAccessDenied)
		}
	}
	ptr, ok := v.w.resources[t]
	if !ok {
		return nil, fmt.Errorf("secs: resource %v: %w", t, ErrNoSuchResource)
	}
	return (*T)(ptr), nil
}
