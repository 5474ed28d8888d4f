// Package render draws preview buffers onto ebiten images.
package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// ImageSurface buffers a polyline and strokes it onto an ebiten image.
type ImageSurface struct {
	img        *ebiten.Image
	background color.Color
	stroke     color.Color
	width      float32
	points     []point
}

type point struct{ x, y float32 }

func NewImageSurface(img *ebiten.Image, background, stroke color.Color) *ImageSurface {
	return &ImageSurface{img: img, background: background, stroke: stroke, width: 1}
}

func (s *ImageSurface) Image() *ebiten.Image { return s.img }

func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *ImageSurface) Clear() {
	s.img.Fill(s.background)
	s.points = s.points[:0]
}

func (s *ImageSurface) MoveTo(x, y float64) {
	s.points = append(s.points[:0], point{float32(x), float32(y)})
}

func (s *ImageSurface) LineTo(x, y float64) {
	s.points = append(s.points, point{float32(x), float32(y)})
}

func (s *ImageSurface) Stroke() {
	for i := 1; i < len(s.points); i++ {
		a, b := s.points[i-1], s.points[i]
		vector.StrokeLine(s.img, a.x, a.y, b.x, b.y, s.width, s.stroke, true)
	}
	s.points = s.points[:0]
}
