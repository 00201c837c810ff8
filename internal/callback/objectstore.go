package callback

import (
	"fmt"
	"sync"

	"github.com/nativebridge/ipc/internal/core"
)

// ObjectStore holds native objects exported to JS by ObjectHandle, the
// way the original runtime's object_store wraps each entry in a RefCell:
// here each entry gets its own mutex so a With call can detect the
// re-entrancy hazard of a handle trying to mutably borrow itself while
// already borrowed, instead of deadlocking.
type ObjectStore struct {
	mu         sync.Mutex
	objects    map[core.ObjectHandle]*entry
	nextHandle uint32
}

type entry struct {
	mu    sync.Mutex
	inUse bool
	value any
}

// NewObjectStore returns an empty store.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[core.ObjectHandle]*entry)}
}

// Insert stores value and returns the handle JS will reference it by.
func (s *ObjectStore) Insert(value any) core.ObjectHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := core.ObjectHandle(s.nextHandle)
	s.nextHandle++
	s.objects[h] = &entry{value: value}
	return h
}

// ReentrancyError is returned when a handle is borrowed while a borrow of
// the same handle is already in progress.
type ReentrancyError struct {
	Handle core.ObjectHandle
}

func (e *ReentrancyError) Error() string {
	return fmt.Sprintf("bridge: object handle %d re-entrantly borrowed", e.Handle)
}

// With invokes fn with the object stored at h. The entry is marked in use
// for the duration of fn; its lock guards only that flag and is not held
// while fn runs. Any other With on the same handle while fn is running —
// a re-entrant borrow from inside fn, or a call from another goroutine —
// returns a ReentrancyError instead of waiting or deadlocking.
func (s *ObjectStore) With(h core.ObjectHandle, fn func(value any) (any, error)) (any, error) {
	s.mu.Lock()
	e, ok := s.objects[h]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("bridge: unknown object handle %d", h)
	}

	e.mu.Lock()
	if e.inUse {
		e.mu.Unlock()
		return nil, &ReentrancyError{Handle: h}
	}
	e.inUse = true
	value := e.value
	e.mu.Unlock()

	result, err := fn(value)

	e.mu.Lock()
	e.inUse = false
	e.mu.Unlock()

	return result, err
}

// Remove deletes h from the store, returning the stored value so the
// caller can run any finalization logic.
func (s *ObjectStore) Remove(h core.ObjectHandle) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.objects[h]
	if !ok {
		return nil, false
	}
	delete(s.objects, h)
	return e.value, true
}

// Len reports how many objects are currently stored.
func (s *ObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
