package wave

// Surface is a 2-D drawing target sized Size(). Coordinates are pixels with
// y growing downwards.
type Surface interface {
	Size() (width, height int)
	Clear()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Stroke()
}

// Renderable reports whether Render can draw.
func (b *Buffer) Renderable() bool { return b.surface != nil }

// Render draws the live samples onto the buffer's surface.
func (b *Buffer) Render() error {
	if b.surface == nil {
		return ErrNotRenderable
	}
	Draw(b.surface, b.samples)
	return nil
}

// Draw plots samples one pixel per index, mapping v in [-1, 1] to
// y = (1 - v) * height / 2.
func Draw(s Surface, samples []float64) {
	s.Clear()
	if len(samples) == 0 {
		return
	}
	_, h := s.Size()
	half := float64(h) / 2
	s.MoveTo(0, (1-samples[0])*half)
	for i := 1; i < len(samples); i++ {
		s.LineTo(float64(i), (1-samples[i])*half)
	}
	s.Stroke()
}
