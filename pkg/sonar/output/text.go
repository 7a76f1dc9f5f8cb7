package output

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/norasector/sonar/pkg/sonar"
)

// shades go from weakest to strongest.
const shades = " .:-=+*#%@"

// TextOutput renders each frame as a character heatmap, one line per
// Doppler row with zero Doppler marked.
type TextOutput struct {
	dest    io.Writer
	mailbox *sonar.Mailbox
	// maxCols squeezes the range axis by taking the max of adjacent bins.
	maxCols int
}

func NewTextOutput(dest io.Writer, maxCols int) *TextOutput {
	return &TextOutput{
		dest:    dest,
		mailbox: sonar.NewMailbox(),
		maxCols: maxCols,
	}
}

func (t *TextOutput) Mailbox() *sonar.Mailbox {
	return t.mailbox
}

func (t *TextOutput) Start(ctx context.Context) error {
	w := bufio.NewWriter(t.dest)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.mailbox.Updates():
			frame, ok := t.mailbox.Take()
			if !ok {
				continue
			}
			if err := t.render(w, frame); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func (t *TextOutput) render(w io.Writer, frame *sonar.Frame) error {
	m := frame.Map
	_, _, peak := m.Peak()

	cols := m.Cols
	if t.maxCols > 0 && cols > t.maxCols {
		cols = t.maxCols
	}
	binsPerCol := (m.Cols + cols - 1) / cols

	if _, err := fmt.Fprintf(w, "pulse %d peak %.3g\n", frame.Pulse, peak); err != nil {
		return err
	}

	line := make([]byte, 0, cols+2)
	for row := 0; row < m.Rows; row++ {
		line = line[:0]
		if row == m.Rows/2 {
			line = append(line, '>')
		} else {
			line = append(line, ' ')
		}
		for c := 0; c*binsPerCol < m.Cols; c++ {
			var v float32
			for b := c * binsPerCol; b < (c+1)*binsPerCol && b < m.Cols; b++ {
				if x := m.At(row, b); x > v {
					v = x
				}
			}
			line = append(line, shade(v, peak))
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func shade(v, peak float32) byte {
	if peak <= 0 {
		return shades[0]
	}
	i := int(v / peak * float32(len(shades)-1))
	if i < 0 {
		i = 0
	}
	if i >= len(shades) {
		i = len(shades) - 1
	}
	return shades[i]
}
