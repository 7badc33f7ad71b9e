package gpu

// FrameIndex is the swapchain's current frame slot. It moves forward once per
// completed present and is independent of the image index returned by
// acquire.
type FrameIndex struct {
	current int
	count   int
}

func NewFrameIndex(count int) FrameIndex {
	return FrameIndex{count: count}
}

func (f FrameIndex) Current() int { return f.current }
func (f FrameIndex) Count() int   { return f.count }

func (f *FrameIndex) Advance() {
	if f.count == 0 {
		return
	}
	f.current = (f.current + 1) % f.count
}

func (f *FrameIndex) Reset() { f.current = 0 }
