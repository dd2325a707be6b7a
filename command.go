package secs

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"
)

type opKind uint8

const (
	opSpawn opKind = iota
	opDespawn
	opInsert
	opRemove
	opSetResource
	opRemoveResource
)

func (k opKind) String() string {
	switch k {
	case opSpawn:
		return "spawn"
	case opDespawn:
		return "despawn"
	case opInsert:
		return "insert"
	case opRemove:
		return "remove"
	case opSetResource:
		return "set resource"
	case opRemoveResource:
		return "remove resource"
	default:
		return "unknown"
	}
}

// command is one deferred structural edit.
type command struct {
	kind       opKind
	entity     Entity
	typ        reflect.Type
	ptr        unsafe.Pointer
	components []any
	err        error
}

// CommandBuffer records structural edits (spawning, despawning, adding and
// removing components) made while the world is only read-locked. The edits are
// applied in record order by Flush under exclusive access.
//
// Entities spawned through a buffer get their IDs immediately, so later
// commands in the same buffer can target them before they exist.
type CommandBuffer struct {
	mu  sync.Mutex
	w   *World
	ops []command
}

// NewCommandBuffer returns a buffer bound to w.
func NewCommandBuffer(w *World) *CommandBuffer {
	return &CommandBuffer{w: w}
}

// bind attaches the buffer to w if it holds no edits for another world.
func (cb *CommandBuffer) bind(w *World) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.w == w {
		return
	}
	if cb.w != nil && len(cb.ops) > 0 {
		panic(fmt.Sprintf("secs: command buffer has %d pending edits for world %v", len(cb.ops), cb.w.ID()))
	}
	cb.w = w
}

// Spawn reserves an entity and records its creation with the given components.
// It panics if the buffer is not bound to a world.
func (cb *CommandBuffer) Spawn(components ...any) Entity {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.w == nil {
		panic("secs: spawn on unbound command buffer")
	}
	e := cb.w.ids.Alloc()
	cb.ops = append(cb.ops, command{kind: opSpawn, entity: e, components: components})
	return e
}

// Despawn records the removal of e.
func (cb *CommandBuffer) Despawn(e Entity) {
	cb.push(command{kind: opDespawn, entity: e})
}

// Insert records attaching component c (a non-nil pointer) to e.
func (cb *CommandBuffer) Insert(e Entity, c any) {
	t, ptr, err := componentOf(c)
	cb.push(command{kind: opInsert, entity: e, typ: t, ptr: ptr, err: err})
}

// Remove records detaching the component of type t from e.
func (cb *CommandBuffer) Remove(e Entity, t reflect.Type) {
	cb.push(command{kind: opRemove, entity: e, typ: t})
}

// InsertLater records attaching c to e.
func InsertLater[T any](cb *CommandBuffer, e Entity, c *T) {
	var err error
	if c == nil {
		err = fmt.Errorf("secs: insert nil %v", reflect.TypeFor[T]())
	}
	cb.push(command{kind: opInsert, entity: e, typ: reflect.TypeFor[T](), ptr: unsafe.Pointer(c), err: err})
}

// RemoveLater records detaching the T from e.
func RemoveLater[T any](cb *CommandBuffer, e Entity) {
	cb.Remove(e, reflect.TypeFor[T]())
}

// SetResourceLater records replacing the world's resource of type T.
func SetResourceLater[T any](cb *CommandBuffer, r *T) {
	cb.push(command{kind: opSetResource, typ: reflect.TypeFor[T](), ptr: unsafe.Pointer(r)})
}

// RemoveResourceLater records deleting the world's resource of type T.
func RemoveResourceLater[T any](cb *CommandBuffer) {
	cb.push(command{kind: opRemoveResource, typ: reflect.TypeFor[T]()})
}

func (cb *CommandBuffer) push(c command) {
	cb.mu.Lock()
	cb.ops = append(cb.ops, c)
	cb.mu.Unlock()
}

// Len returns the number of pending edits.
func (cb *CommandBuffer) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.ops)
}

// Empty reports whether no edits are pending.
func (cb *CommandBuffer) Empty() bool {
	return cb.Len() == 0
}

// Reset discards pending edits. Entities reserved by Spawn are released.
func (cb *CommandBuffer) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	for _, op := range cb.ops {
		if op.kind == opSpawn && cb.w != nil {
			cb.w.ids.Free(op.entity)
		}
	}
	cb.ops = cb.ops[:0]
}

// Flush applies every pending edit to w and empties the buffer.
// An edit that fails (for example, inserting into a despawned entity) does not
// stop the ones after it; all failures are returned joined.
// The caller must hold exclusive access to w. A buffer bound to another world
// is left untouched.
func (cb *CommandBuffer) Flush(w *World) error {
	cb.mu.Lock()
	if len(cb.ops) == 0 {
		cb.mu.Unlock()
		return nil
	}
	if bound := cb.w; bound != nil && bound != w {
		cb.mu.Unlock()
		return fmt.Errorf("secs: command buffer bound to world %v flushed into %v", bound.ID(), w.ID())
	}
	ops := cb.ops
	cb.ops = nil
	cb.mu.Unlock()

	var errs []error
	for i := range ops {
		if err := ops[i].apply(w); err != nil {
			w.log.Debug("secs: deferred command failed", "op", ops[i].kind.String(), "entity", ops[i].entity.String(), "error", err)
			errs = append(errs, fmt.Errorf("secs: %s %v: %w", ops[i].kind, ops[i].entity, err))
		}
	}
	return errors.Join(errs...)
}

func (c *command) apply(w *World) error {
	if c.err != nil {
		return c.err
	}
	switch c.kind {
	case opSpawn:
		if err := w.spawnReserved(c.entity, c.components); err != nil {
			w.ids.Free(c.entity)
			return err
		}
		return nil
	case opDespawn:
		return w.Despawn(c.entity)
	case opInsert:
		return w.insert(c.entity, c.typ, c.ptr)
	case opRemove:
		return w.remove(c.entity, c.typ)
	case opSetResource:
		w.resources[c.typ] = c.ptr
		return nil
	case opRemoveResource:
		delete(w.resources, c.typ)
		return nil
	}
	return fmt.Errorf("secs: unknown command %d", c.kind)
}
