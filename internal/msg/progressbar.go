package msg

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// ProgressBar redraws a single `label  42% [####----] 5/12` line. It is safe
// for concurrent use.
type ProgressBar struct {
	Label string
	W     io.Writer

	mu         sync.Mutex
	done       int
	total      int
	lastPrint  time.Time
	throbIndex int
}

var throbbers = []rune{'|', '/', '-', '\\'}

func NewProgressBar(label string, w io.Writer) *ProgressBar {
	return &ProgressBar{Label: label, W: w}
}

// Set records done out of total and redraws, at most every 40ms unless the
// work is complete
func (pb *ProgressBar) Set(done, total int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.done, pb.total = done, total
	if done >= total || time.Since(pb.lastPrint) > 40*time.Millisecond {
		pb.print(false)
		pb.lastPrint = time.Now()
	}
}

func (pb *ProgressBar) print(finish bool) {
	width := 30
	percent := float64(pb.done) / float64(max(pb.total, 1))
	if finish {
		percent = 1
	}

	filled := min(int(percent*float64(width)), width)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)

	throb := throbbers[pb.throbIndex%len(throbbers)]
	pb.throbIndex++
	if finish {
		throb = ' '
	}

	fmt.Fprintf(pb.W, "\r%s %4.f%% [%s] %d/%d %c", pb.Label, percent*100, bar, pb.done, pb.total, throb)
}

// Finish draws the bar full and ends the line
func (pb *ProgressBar) Finish() {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	pb.done = pb.total
	pb.print(true)
	fmt.Fprintln(pb.W)
}
