package gpio

import (
	"errors"
	"sync"
)

// FakeLine is a test double that records writes and returns scripted errors.
// It is safe for concurrent use.
type FakeLine struct {
	mu sync.Mutex

	// value is the last value written (initially Active, like a real request).
	value int

	// writes records every value passed to SetValue.
	writes []int

	// closed tracks if Close was called
	closed bool

	// SetError, if set, will be returned by SetValue.
	SetError error

	// ReadError, if set, will be returned by Value.
	ReadError error
}

// NewFakeLine creates a FakeLine in the state a fresh output request leaves it.
func NewFakeLine() *FakeLine {
	return &FakeLine{value: Active}
}

// SetValue records the write.
func (f *FakeLine) SetValue(value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("line closed")
	}
	if f.SetError != nil {
		return f.SetError
	}
	f.value = value
	f.writes = append(f.writes, value)
	return nil
}

// Value returns the last written value.
func (f *FakeLine) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	return f.value, nil
}

// Close marks the line as closed.
func (f *FakeLine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeLine) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Writes returns a copy of every value written so far.
func (f *FakeLine) Writes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.writes...)
}

// Current returns the last written value without consulting ReadError.
func (f *FakeLine) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// SetErrors sets the scripted write and read errors.
func (f *FakeLine) SetErrors(setErr, readErr error) {
	f.mu.Lock()
	f.SetError = setErr
	f.ReadError = readErr
	f.mu.Unlock()
}

// Reset clears recorded writes and reopens the line.
func (f *FakeLine) Reset() {
	f.mu.Lock()
	f.value = Active
	f.writes = nil
	f.closed = false
	f.SetError = nil
	f.ReadError = nil
	f.mu.Unlock()
}

// FakeOpener hands out a FakeLine and counts acquisitions.
type FakeOpener struct {
	mu    sync.Mutex
	Line  *FakeLine
	Err   error
	calls int
}

// NewFakeOpener creates a FakeOpener around a fresh FakeLine.
func NewFakeOpener() *FakeOpener {
	return &FakeOpener{Line: NewFakeLine()}
}

// Open returns the fake line, or Err if set.
func (o *FakeOpener) Open() (Line, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Line, nil
}

// SetErr sets the error returned by subsequent Open calls.
func (o *FakeOpener) SetErr(err error) {
	o.mu.Lock()
	o.Err = err
	o.mu.Unlock()
}

// Calls returns how many times Open was called.
func (o *FakeOpener) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
