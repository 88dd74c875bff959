package entity

// Matte is a per-pixel foreground opacity, row-major, 1 = foreground.
type Matte struct {
	Width  int
	Height int
	Pix    []float32
}

func NewMatte(width, height int) *Matte {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Matte{Width: width, Height: height, Pix: make([]float32, width*height)}
}

// NewFilledMatte returns a matte with every pixel set to v.
func NewFilledMatte(width, height int, v float32) *Matte {
	m := NewMatte(width, height)
	for i := range m.Pix {
		m.Pix[i] = v
	}
	return m
}

func (m *Matte) At(x, y int) float32 {
	return m.Pix[y*m.Width+x]
}

func (m *Matte) Set(x, y int, v float32) {
	m.Pix[y*m.Width+x] = v
}

func (m *Matte) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0 || len(m.Pix) < m.Width*m.Height
}

func (m *Matte) Clone() *Matte {
	c := &Matte{Width: m.Width, Height: m.Height, Pix: make([]float32, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}
