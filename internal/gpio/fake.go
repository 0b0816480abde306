package gpio

import "sync"

// FakeOutput is a test double recording every write.
type FakeOutput struct {
	// Writes contains every level written, in order.
	Writes []bool

	// Level is the last level written.
	Level bool

	// WriteError, if set, is returned by Write and the level is left unchanged.
	WriteError error
}

// NewFakeOutput creates a FakeOutput at the inactive level.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Write records the level.
func (f *FakeOutput) Write(on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, on)
	f.Level = on
	return nil
}

// FakeInput is a test double whose level is set by the test.
// Trigger may be called from another goroutine to simulate edge events.
type FakeInput struct {
	mu      sync.Mutex
	level   bool
	handler func(bool)

	// ReadError, if set, is returned by Read.
	ReadError error
}

// NewFakeInput creates a FakeInput at the given level.
func NewFakeInput(level bool) *FakeInput {
	return &FakeInput{level: level}
}

// Read returns the current level.
func (f *FakeInput) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level, nil
}

// OnEdge stores the edge handler.
func (f *FakeInput) OnEdge(fn func(on bool)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

// Trigger sets the level and, when it changed, invokes the edge handler as the
// event goroutine would. It reports whether an edge was delivered.
func (f *FakeInput) Trigger(on bool) bool {
	f.mu.Lock()
	changed := f.level != on
	f.level = on
	fn := f.handler
	f.mu.Unlock()

	if !changed || fn == nil {
		return false
	}
	fn(on)
	return true
}
