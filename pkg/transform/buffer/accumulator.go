// Package buffer collects chunked HTTP body bytes until the host signals
// end of stream.
package buffer

import "errors"

var (
	// ErrFinalized is returned when a chunk arrives after the final chunk.
	// The host contract guarantees this never happens, so seeing it means a
	// caller is driving the accumulator out of order.
	ErrFinalized = errors.New("buffer: append after final chunk")

	// ErrNotFinalized is returned by TakeAll before the final chunk was seen.
	ErrNotFinalized = errors.New("buffer: body not finalized")
)

// Accumulator owns the body bytes of one direction of one exchange.
// It is not safe for concurrent use; the host delivers events for a single
// exchange sequentially.
type Accumulator struct {
	buf       []byte
	finalized bool
}

// Append appends chunk to the buffer. When final is true the accumulator is
// finalized and rejects any further chunks.
func (a *Accumulator) Append(chunk []byte, final bool) error {
	if a.finalized {
		return ErrFinalized
	}
	a.buf = append(a.buf, chunk...)
	a.finalized = final
	return nil
}

// TakeAll returns the complete body. It may only be called once finalized.
func (a *Accumulator) TakeAll() ([]byte, error) {
	if !a.finalized {
		return nil, ErrNotFinalized
	}
	return a.buf, nil
}

// Release drops the buffered bytes. Used when an exchange is torn down
// before the body completes.
func (a *Accumulator) Release() {
	a.buf = nil
}

// Len returns the number of buffered bytes.
func (a *Accumulator) Len() int {
	return len(a.buf)
}

// Finalized reports whether the final chunk has been appended.
func (a *Accumulator) Finalized() bool {
	return a.finalized
}
