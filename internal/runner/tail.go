package runner

import "sync"

const defaultMaxOutputBytes = 1 << 20 // 1 MiB per stream

// tailBuffer is an io.Writer keeping only the last max bytes written. Long
// command output gets clipped from the front so the interesting tail (the
// error, the summary line) survives.
type tailBuffer struct {
	mu      sync.Mutex
	buf     []byte
	max     int
	clipped bool
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = defaultMaxOutputBytes
	}
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		t.clipped = true
		return len(p), nil
	}
	if len(t.buf)+len(p) > t.max {
		drop := len(t.buf) + len(p) - t.max
		t.buf = append(t.buf[:0], t.buf[drop:]...)
		t.clipped = true
	}
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clipped {
		return "[...output clipped...]\n" + string(t.buf)
	}
	return string(t.buf)
}
