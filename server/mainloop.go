package server

import (
	"context"
	"sync"

	pwnedcraft "github.com/NelminDev/PwnedCraft"
)

const mainLoopBacklog = 1024

// mainLoop executes submitted calls one at a time, in submission order.
// Authoritative server state is only ever mutated from inside these
// calls, so they never race each other.
type mainLoop struct {
	calls chan func(context.Context)
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func newMainLoop() *mainLoop {
	return &mainLoop{
		calls: make(chan func(context.Context), mainLoopBacklog),
		done:  make(chan struct{}),
	}
}

// Submit queues f for execution on the loop. Calls submitted after
// Close are dropped.
func (m *mainLoop) Submit(f func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.calls <- f
}

// Start runs calls until the context is cancelled or Close is called.
// The context handed to each call is marked as the main context.
func (m *mainLoop) Start(ctx context.Context) error {
	defer close(m.done)
	ctx = pwnedcraft.MakeMainContext(ctx)
	for {
		select {
		case f, ok := <-m.calls:
			if !ok {
				return nil
			}
			f(ctx)
		case <-ctx.Done():
			return pwnedcraft.WithStack(ctx.Err())
		}
	}
}

// Close drains already-submitted calls and waits for Start to return.
func (m *mainLoop) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.calls)
	}
	m.mu.Unlock()
	<-m.done
}
