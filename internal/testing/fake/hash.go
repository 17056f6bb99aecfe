package fake

import "hash"

// Hash is a fake implementation of hash.Hash that fails after a number of
// writes.
//
// - implements hash.Hash
type Hash struct {
	hash.Hash

	delay int
	err   error
	Call  *Call
}

// NewBadHash returns a hash that fails on the first write.
func NewBadHash() *Hash {
	return &Hash{err: fakeErr}
}

// NewBadHashWithDelay returns a hash that fails after the given number of
// successful writes.
func NewBadHashWithDelay(delay int) *Hash {
	return &Hash{err: fakeErr, delay: delay}
}

// Write implements io.Writer. It returns an error once the delay is consumed.
func (h *Hash) Write(data []byte) (int, error) {
	h.Call.Add(data)

	if h.delay > 0 {
		h.delay--
		return len(data), nil
	}

	if h.err != nil {
		return 0, h.err
	}

	return len(data), nil
}
