// Package fake provides fake implementations for interfaces commonly used in
// the repository.
// The implementations offer configuration to return errors when it is needed by
// the unit test and it is also possible to record the call of functions of an
// object in some cases.
package fake

import (
	"go.dedis.ch/delay/serde"
	"golang.org/x/xerrors"
)

var fakeErr = xerrors.New("fake error")

// GetError returns the fake error used in the tests.
func GetError() error {
	return fakeErr
}

// Err returns the message of a wrapped fake error.
func Err(msg string) string {
	return msg + ": " + fakeErr.Error()
}

// Call is a tool to keep track of a function calls.
type Call struct {
	calls [][]interface{}
}

// Get returns the nth call ith parameter.
func (c *Call) Get(n, i int) interface{} {
	return c.calls[n][i]
}

// Len returns the number of calls.
func (c *Call) Len() int {
	if c == nil {
		return 0
	}

	return len(c.calls)
}

// Add adds a call to the list.
func (c *Call) Add(args ...interface{}) {
	if c == nil {
		return
	}

	c.calls = append(c.calls, args)
}

// Message is a fake implementation of a serde message.
//
// - implements serde.Message
type Message struct {
	Digest []byte
}

// Serialize implements serde.Message. It returns a constant.
func (m Message) Serialize(serde.Context) ([]byte, error) {
	return []byte("{}"), nil
}

// Format is a fake format engine.
//
// - implements serde.FormatEngine
type Format struct {
	err  error
	Msg  serde.Message
	Call *Call
}

// NewBadFormat returns a format that always returns an error.
func NewBadFormat() Format {
	return Format{err: fakeErr}
}

// Encode implements serde.FormatEngine.
func (f Format) Encode(ctx serde.Context, m serde.Message) ([]byte, error) {
	f.Call.Add(ctx, m)

	return []byte("fake format"), f.err
}

// Decode implements serde.FormatEngine.
func (f Format) Decode(ctx serde.Context, data []byte) (serde.Message, error) {
	f.Call.Add(ctx, data)

	return f.Msg, f.err
}

// ContextEngine is a fake implementation of serde.ContextEngine that fails
// when configured to.
//
// - implements serde.ContextEngine
type ContextEngine struct {
	Format serde.Format
	err    error
}

const (
	// GoodFormat is the name of a format registered with a working engine in
	// the tests.
	GoodFormat = serde.Format("FakeGood")

	// BadFormat is the name of a format registered with a failing engine in
	// the tests.
	BadFormat = serde.Format("FakeBad")
)

// NewContextWithFormat returns a serde context that uses the fake engine
// for the format.
func NewContextWithFormat(f serde.Format) serde.Context {
	return serde.NewContext(ContextEngine{Format: f})
}

// NewContext returns a new serde context that uses the fake engine.
func NewContext() serde.Context {
	return serde.NewContext(ContextEngine{Format: serde.FormatJSON})
}

// NewBadContext returns a serde context that always returns an error.
func NewBadContext() serde.Context {
	return serde.NewContext(ContextEngine{Format: serde.FormatJSON, err: fakeErr})
}

// GetFormat implements serde.ContextEngine.
func (e ContextEngine) GetFormat() serde.Format {
	return e.Format
}

// Marshal implements serde.ContextEngine.
func (e ContextEngine) Marshal(interface{}) ([]byte, error) {
	return []byte("{}"), e.err
}

// Unmarshal implements serde.ContextEngine.
func (e ContextEngine) Unmarshal([]byte, interface{}) error {
	return e.err
}
