package secs

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"
)

// ComponentID is a per-world identifier for a component type.
// Valid IDs range from 0 to 254.
type ComponentID uint8

// MaxComponents is the maximum number of component types a world supports.
const MaxComponents = 255

// componentRegistry assigns ComponentIDs to types.
// Lookups are lock-free so systems can resolve types while the world is shared;
// registration may also happen concurrently (for example while declaring a query
// from a parallel Prepare).
type componentRegistry struct {
	types sync.Map // map[reflect.Type]ComponentID

	names    [MaxComponents]string
	typesArr [MaxComponents]reflect.Type

	nextID atomic.Uint32
	arrMu  sync.RWMutex
	regMu  sync.Mutex
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{}
}

// register returns the ID of t, assigning one if needed.
func (r *componentRegistry) register(t reflect.Type) ComponentID {
	if id, ok := r.types.Load(t); ok {
		return id.(ComponentID)
	}

	r.regMu.Lock()
	defer r.regMu.Unlock()

	if id, ok := r.types.Load(t); ok {
		return id.(ComponentID)
	}
	n := r.nextID.Load()
	if n >= MaxComponents {
		panic(fmt.Sprintf("secs: component limit exceeded (max %d types)", MaxComponents))
	}
	id := ComponentID(n)

	r.arrMu.Lock()
	r.names[id] = t.String()
	r.typesArr[id] = t
	r.arrMu.Unlock()

	r.types.Store(t, id)
	r.nextID.Store(n + 1)
	return id
}

// lookup returns the ID of t if it was ever registered.
func (r *componentRegistry) lookup(t reflect.Type) (ComponentID, bool) {
	if id, ok := r.types.Load(t); ok {
		return id.(ComponentID), true
	}
	return 0, false
}

func (r *componentRegistry) typeOf(id ComponentID) reflect.Type {
	r.arrMu.RLock()
	defer r.arrMu.RUnlock()
	return r.typesArr[id]
}

func (r *componentRegistry) count() int {
	return int(r.nextID.Load())
}

// Attachable is implemented by components that need initialization logic
// when attached to an entity. Attach runs while the world is exclusively held.
type Attachable interface {
	Attach(w *World, e Entity)
}

// Detachable is implemented by components that need cleanup logic when removed,
// replaced, or when their entity is despawned.
type Detachable interface {
	Detach(w *World, e Entity)
}

// Insert attaches c to e, replacing any component of the same type.
// It requires exclusive access to the world; systems use CommandBuffer instead.
func Insert[T any](w *World, e Entity, c *T) error {
	if c == nil {
		return fmt.Errorf("secs: insert nil %v", reflect.TypeFor[T]())
	}
	return w.insert(e, reflect.TypeFor[T](), unsafe.Pointer(c))
}

// Remove detaches the component of type T from e.
// Removing an absent component returns ErrNoSuchComponent.
func Remove[T any](w *World, e Entity) error {
	return w.remove(e, reflect.TypeFor[T]())
}

// Get returns the component of type T on e.
// The error is a *ResolveError wrapping ErrNoSuchEntity, ErrNoSuchComponent or ErrAccessDenied.
func Get[T any](r Reader, e Entity) (*T, error) {
	t := reflect.TypeFor[T]()
	ptr, err := r.view().get(e, t)
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// MustGet is like Get but panics on failure. It is meant for entities the
// caller wired itself, where a missing component is an assembly bug.
func MustGet[T any](r Reader, e Entity) *T {
	c, err := Get[T](r, e)
	if err != nil {
		panic(err)
	}
	return c
}

// Has reports whether e carries a component of type T visible to r.
func Has[T any](r Reader, e Entity) bool {
	_, err := r.view().get(e, reflect.TypeFor[T]())
	return err == nil
}

// ComponentName returns the registered name of the component with the given ID.
func (w *World) ComponentName(id ComponentID) string {
	w.registry.arrMu.RLock()
	defer w.registry.arrMu.RUnlock()
	return w.registry.names[id]
}

// ComponentCount returns the number of registered component types.
func (w *World) ComponentCount() int {
	return w.registry.count()
}

// ComponentIDOf returns the ID of T in w, registering it if needed.
func ComponentIDOf[T any](w *World) ComponentID {
	return w.registry.register(reflect.TypeFor[T]())
}
