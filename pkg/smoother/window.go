package smoother

// Window is a fixed-capacity FIFO of sample values. Once full, each Push
// overwrites the oldest sample. It is not safe for concurrent use.
type Window struct {
	buf   []int
	next  int
	count int
	sum   int
}

// NewWindow creates a window holding at most size samples.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]int, size)}
}

// Push appends v, evicting the oldest sample when full.
func (w *Window) Push(v int) {
	if w.count == len(w.buf) {
		w.sum -= w.buf[w.next]
	} else {
		w.count++
	}
	w.buf[w.next] = v
	w.sum += v
	w.next = (w.next + 1) % len(w.buf)
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Mean returns the average of the held samples. ok is false when empty.
func (w *Window) Mean() (mean float64, ok bool) {
	if w.count == 0 {
		return 0, false
	}
	return float64(w.sum) / float64(w.count), true
}

// Values returns the held samples, oldest first.
func (w *Window) Values() []int {
	out := make([]int, 0, w.count)
	start := w.next - w.count
	if start < 0 {
		start += len(w.buf)
	}
	for i := 0; i < w.count; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}
