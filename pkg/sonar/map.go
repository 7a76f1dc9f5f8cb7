package sonar

// Map is a row-major range-Doppler magnitude image. Rows are Doppler bins
// with zero Doppler on row Rows/2; columns are range bins.
type Map struct {
	Rows, Cols int
	Data       []float32
}

func NewMap(rows, cols int) *Map {
	return &Map{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

func (m *Map) At(row, col int) float32 {
	return m.Data[row*m.Cols+col]
}

// Peak returns the strongest cell, preferring the first in row-major order.
func (m *Map) Peak() (row, col int, value float32) {
	if len(m.Data) == 0 {
		return 0, 0, 0
	}
	best := 0
	for i, x := range m.Data {
		if x > m.Data[best] {
			best = i
		}
	}
	return best / m.Cols, best % m.Cols, m.Data[best]
}

func (m *Map) Clone() *Map {
	ret := &Map{Rows: m.Rows, Cols: m.Cols, Data: make([]float32, len(m.Data))}
	copy(ret.Data, m.Data)
	return ret
}

func (m *Map) fits(rows, cols int) bool {
	return m != nil && m.Rows == rows && m.Cols == cols && len(m.Data) == rows*cols
}
