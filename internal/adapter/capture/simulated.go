package capture

import (
	"context"
	"errors"
	"sync"

	"goldpayments/internal/core/ports"
)

// ErrDenied is returned when the device refuses access.
var ErrDenied = errors.New("capture device access denied")

// Simulated implements ports.CaptureDevice without hardware. It counts open
// streams so leaks are observable.
type Simulated struct {
	mu     sync.Mutex
	deny   bool
	active int
}

// NewSimulated creates a simulated device. With deny set every Acquire fails.
func NewSimulated(deny bool) *Simulated {
	return &Simulated{deny: deny}
}

// Acquire opens a stream.
func (s *Simulated) Acquire(ctx context.Context) (ports.CaptureStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.deny {
		return nil, ErrDenied
	}

	s.mu.Lock()
	s.active++
	s.mu.Unlock()

	return &stream{device: s}, nil
}

// Active returns the number of streams not yet released.
func (s *Simulated) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

type stream struct {
	device *Simulated
	once   sync.Once
}

// Release closes the stream. Extra calls are no-ops.
func (st *stream) Release() {
	st.once.Do(func() {
		st.device.mu.Lock()
		st.device.active--
		st.device.mu.Unlock()
	})
}
