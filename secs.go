// Package secs provides a shared-world scheduling layer for entity-component systems.
//
// SECS lets many systems read and write one world concurrently. The world lives
// behind a reader-writer lock (Handle); schedules hold the read lock while their
// systems run and take the write lock only to apply deferred structural edits.
// On top of that it provides:
//   - Serial and Parallel schedules that nest arbitrarily
//   - Command buffers for spawning, despawning and adding/removing components
//   - Lazy cells for values that are still being built (Pending, Ready, Dropped)
//   - Change flags for propagating "this value changed" without diffing
//   - Indirect references to components living on other entities
//   - Usage tags to attach several values of one type to an entity
//
// # Quick Start
//
//	w := secs.NewWorld()
//	window, _ := w.Spawn(&secs.Lazy[Surface]{}, secs.NewClean())
//	h := secs.NewHandle(w)
//
//	frame := secs.NewSerial("frame").
//	    Add(loadSurface).
//	    Add(secs.NewParallel("encode").Add(shadows, opaque).MustBuild()).
//	    Add(present).
//	    MustBuild()
//
//	for range ticker.C {
//	    if err := frame.ExecuteAndFlush(h); err != nil {
//	        return err
//	    }
//	}
//
// # Systems
//
// A system declares what it touches and receives a view restricted to it:
//
//	draw := secs.NewSystem("draw", func(v *secs.View, cmd *secs.CommandBuffer) error {
//	    return meshes.Each(v, func(e secs.Entity) error {
//	        buf, err := secs.Get[secs.Shared[Buffer]](v, e)
//	        if err != nil {
//	            return err
//	        }
//	        buf.Write(func(b *Buffer) { b.Upload() })
//	        return nil
//	    })
//	}).Writes(secs.TypeOf[secs.Shared[Buffer]]()).Query(meshes)
//
// Systems never mutate the world's structure directly. Component values that
// parallel systems write must carry their own lock (Shared) or be atomic
// (ChangeFlag).
//
// # Limitations
//
// Only the top-level schedule flushes command buffers, and only those of its
// direct children. Exclusive access to a world resource cannot be expressed;
// keep mutable singletons on an entity instead.
package secs

// Version is the SECS version.
const Version = "0.1.0"
