package pending

import (
	"testing"
	"time"

	. "github.com/fulldump/biff"
)

func TestTracker(t *testing.T) {

	Alternative("Tracker", func(a *A) {

		tracker := NewTracker()

		a.Alternative("method flags", func(a *A) {
			tracker.SetPending(Find, true)
			AssertTrue(tracker.IsPending(Find))
			AssertTrue(tracker.IsAnyPending())
			AssertEqual(tracker.InFlight(), 1)

			tracker.SetPending(Find, false)
			AssertFalse(tracker.IsPending(Find))
			AssertEqual(tracker.InFlight(), 0)
		})

		a.Alternative("overlapping calls share the flag", func(a *A) {
			tracker.SetPending(Patch, true)
			tracker.SetPending(Patch, true)
			tracker.SetPending(Patch, false)
			AssertFalse(tracker.IsPending(Patch))
			AssertEqual(tracker.InFlight(), 1)
		})

		a.Alternative("counter never below zero", func(a *A) {
			tracker.SetPending(Get, false)
			tracker.SetPending(Get, false)
			AssertEqual(tracker.InFlight(), 0)
		})

		a.Alternative("by id", func(a *A) {
			tracker.SetPendingByID("1", Patch, true)
			AssertTrue(tracker.IsPendingByID("1"))
			AssertTrue(tracker.IsPendingByID("1", Patch))
			AssertFalse(tracker.IsPendingByID("1", Remove))
			AssertFalse(tracker.IsPendingByID("2"))

			tracker.SetPendingByID("1", Patch, false)
			AssertFalse(tracker.IsPendingByID("1"))

			tracker.SetPendingByID("1", Remove, true)
			tracker.UnsetPendingByID("1")
			AssertFalse(tracker.IsPendingByID("1"))
		})

		a.Alternative("clear all", func(a *A) {
			tracker.SetPending(Create, true)
			tracker.SetPendingByID("t", Create, true)
			tracker.ClearAll()
			AssertFalse(tracker.IsAnyPending())
			AssertFalse(tracker.IsPendingByID("t"))
			AssertEqual(tracker.InFlight(), 0)
		})
	})
}

func TestEventLocks(t *testing.T) {

	Alternative("Locks", func(a *A) {

		locks := NewEventLocks(20 * time.Millisecond)

		a.Alternative("toggle sets", func(a *A) {
			AssertTrue(locks.Toggle("1", Patched))
			AssertTrue(locks.IsLocked("1", Patched))
			AssertFalse(locks.IsLocked("1", Removed))
			AssertFalse(locks.IsLocked("2", Patched))
		})

		a.Alternative("toggle twice clears", func(a *A) {
			locks.Toggle("1", Patched)
			AssertFalse(locks.Toggle("1", Patched))
			AssertFalse(locks.IsLocked("1", Patched))
		})

		a.Alternative("clear", func(a *A) {
			locks.Toggle("1", Removed)
			locks.Clear("1", Removed)
			AssertFalse(locks.IsLocked("1", Removed))
		})

		a.Alternative("expires", func(a *A) {
			locks.Toggle("1", Updated)
			time.Sleep(60 * time.Millisecond)
			AssertFalse(locks.IsLocked("1", Updated))
		})

		a.Alternative("stale timer keeps newer lock", func(a *A) {
			locks := NewEventLocks(50 * time.Millisecond)
			locks.Toggle("1", Patched)
			time.Sleep(30 * time.Millisecond)
			locks.Clear("1", Patched)
			locks.Toggle("1", Patched)
			time.Sleep(30 * time.Millisecond)
			AssertTrue(locks.IsLocked("1", Patched))
		})
	})
}

func TestEventFor(t *testing.T) {
	AssertEqual(EventFor(Patch), Patched)
	AssertEqual(EventFor(Remove), Removed)
	AssertEqual(EventFor(Find), Event(""))
}

func TestDefaultTTL(t *testing.T) {
	locks := NewEventLocks(0)
	AssertEqual(locks.ttl, 250*time.Millisecond)
}
