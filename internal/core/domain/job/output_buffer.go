package job

// DefaultOutputLimit is the per-stream capture cap.
const DefaultOutputLimit = 1 << 20

// Stream identifies which child stream produced a chunk of output.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// OutputBuffer keeps the most recent limit bytes written to it. Older bytes
// are discarded and counted in Dropped. It is not safe for concurrent use.
type OutputBuffer struct {
	limit   int
	data    []byte
	start   int
	dropped int64
}

func NewOutputBuffer(limit int) *OutputBuffer {
	if limit < 0 {
		limit = 0
	}
	return &OutputBuffer{limit: limit}
}

func (b *OutputBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n == 0 {
		return 0, nil
	}
	if b.limit == 0 {
		b.dropped += int64(n)
		return n, nil
	}
	if n >= b.limit {
		b.dropped += int64(b.Len() + n - b.limit)
		b.data = append(b.data[:0], p[n-b.limit:]...)
		b.start = 0
		return n, nil
	}

	if overflow := b.Len() + n - b.limit; overflow > 0 {
		b.start += overflow
		b.dropped += int64(overflow)
	}
	// compact once the dead prefix is as large as the live window
	if b.start >= b.limit {
		live := copy(b.data, b.data[b.start:])
		b.data = b.data[:live]
		b.start = 0
	}
	b.data = append(b.data, p...)
	return n, nil
}

// Len is the number of retained bytes.
func (b *OutputBuffer) Len() int {
	return len(b.data) - b.start
}

// Bytes returns a copy of the retained bytes.
func (b *OutputBuffer) Bytes() []byte {
	out := make([]byte, b.Len())
	copy(out, b.data[b.start:])
	return out
}

func (b *OutputBuffer) String() string {
	return string(b.data[b.start:])
}

// Dropped is the total number of bytes evicted so far.
func (b *OutputBuffer) Dropped() int64 {
	return b.dropped
}
