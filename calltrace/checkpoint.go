package calltrace

import "sync"

// A Checkpoint is a release-once sentinel a tracer plants in a frame
// it declines to observe. The frame releases it on teardown, which
// lets the tracer balance its call count even though the frame never
// dispatched a return notification. If the frame is held alive past
// its natural teardown the release arrives late; the resulting
// imprecision in the budget is accepted.
type Checkpoint struct {
	once     sync.Once
	onReturn func()
}

// NewCheckpoint creates a checkpoint invoking onReturn when released.
func NewCheckpoint(onReturn func()) *Checkpoint {
	return &Checkpoint{onReturn: onReturn}
}

// Release fires the callback. Further calls are no-ops.
func (c *Checkpoint) Release() {
	c.once.Do(func() {
		if c.onReturn != nil {
			c.onReturn()
		}
	})
}
