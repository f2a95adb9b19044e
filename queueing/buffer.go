// Package queueing provides the FIFO buffers that hold packets waiting for
// service.
package queueing

import (
	"log"
	"sync"

	"github.com/ddirect/container/fifo"
	"github.com/sarchlab/pktmux/hooking"
)

// HookPosBufPush marks when an element is pushed into the buffer.
var HookPosBufPush = &hooking.HookPos{Name: "Buffer Push"}

// HookPosBufPop marks when an element is popped from the buffer.
var HookPosBufPop = &hooking.HookPos{Name: "Buffer Pop"}

// Unbounded is the capacity of a buffer that never refuses a push.
const Unbounded = 0

// Buffer is a FIFO queue. It is safe to inspect (Size, Snapshot) from another
// goroutine while a single owner pushes and pops.
type Buffer[T any] struct {
	*hooking.HookableBase

	lock     sync.Mutex
	name     string
	capacity int
	elements fifo.Fifo[T]
}

// NewBuffer creates a buffer. A capacity of Unbounded (0) lets the buffer
// grow without limit.
func NewBuffer[T any](name string, capacity int) *Buffer[T] {
	if name == "" {
		log.Panic("buffer name cannot be empty")
	}

	if capacity < 0 {
		log.Panicf("buffer %s: negative capacity %d", name, capacity)
	}

	return &Buffer[T]{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		capacity:     capacity,
	}
}

// Name returns the name of the buffer.
func (b *Buffer[T]) Name() string {
	return b.name
}

// CanPush checks if the buffer can accept a new element.
func (b *Buffer[T]) CanPush() bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.canPush()
}

func (b *Buffer[T]) canPush() bool {
	return b.capacity == Unbounded || b.elements.Len() < b.capacity
}

// Push appends an element. Pushing into a full buffer panics; check CanPush
// first when the buffer is bounded.
func (b *Buffer[T]) Push(e T) {
	b.lock.Lock()
	if !b.canPush() {
		b.lock.Unlock()
		log.Panicf("buffer %s overflow", b.name)
	}

	b.elements.Enqueue(e)
	b.lock.Unlock()

	if b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPush,
			Item:   e,
		})
	}
}

// Pop removes and returns the oldest element. The second return value is
// false if the buffer is empty.
func (b *Buffer[T]) Pop() (T, bool) {
	b.lock.Lock()
	e, ok := b.elements.Dequeue()
	b.lock.Unlock()

	if ok && b.NumHooks() > 0 {
		b.InvokeHook(hooking.HookCtx{
			Domain: b,
			Pos:    HookPosBufPop,
			Item:   e,
		})
	}

	return e, ok
}

// Capacity returns the maximum capacity of the buffer, Unbounded if there is
// none.
func (b *Buffer[T]) Capacity() int {
	return b.capacity
}

// Size returns the current number of elements in the buffer.
func (b *Buffer[T]) Size() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.elements.Len()
}

// Snapshot returns a copy of the elements, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	b.lock.Lock()
	defer b.lock.Unlock()

	n := b.elements.Len()
	out := make([]T, 0, n)

	// Rotating the whole queue once leaves it in its original order.
	for i := 0; i < n; i++ {
		e, _ := b.elements.Dequeue()
		out = append(out, e)
		b.elements.Enqueue(e)
	}

	return out
}

// Clear removes all elements in the buffer.
func (b *Buffer[T]) Clear() {
	b.lock.Lock()
	defer b.lock.Unlock()

	for b.elements.Len() > 0 {
		b.elements.Dequeue()
	}
}
