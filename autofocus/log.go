package autofocus

import (
	"bufio"
	"fmt"
	"io"
)

// FocusSample is one (index, position, score) observation, appended
// in capture order to the focus-score log.
type FocusSample struct {
	Index    int
	Position int
	Score    float64
}

// FocusMaximum tracks the best sample seen so far. A new sample
// replaces it only on a tie-or-better score (spec.md §3: "updated
// monotonically... replaces the maximum only if its score is ≥
// current maximum").
type FocusMaximum struct {
	Score    float64
	Position int
	Index    int
}

func (m *FocusMaximum) consider(s FocusSample) {
	if s.Score >= m.Score {
		*m = FocusMaximum{Score: s.Score, Position: s.Position, Index: s.Index}
	}
}

// Log is the append-only focus-score log, one "<index>\t<score>\n"
// line per sample (spec.md §6).
type Log struct {
	w *bufio.Writer
}

// NewLog wraps w (typically focusingdata.txt opened for append) as a
// buffered line-at-a-time writer.
func NewLog(w io.Writer) *Log {
	return &Log{w: bufio.NewWriter(w)}
}

func (l *Log) Append(s FocusSample) error {
	if _, err := fmt.Fprintf(l.w, "%d\t%v\n", s.Index, s.Score); err != nil {
		return err
	}
	return l.w.Flush()
}
