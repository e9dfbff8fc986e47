package capture

import "sync"

// Queue is the append-only list of encoded action lines produced by a capture.
// The pipeline worker is the only writer.
type Queue struct {
	mu    sync.RWMutex
	lines []string
}

// Append adds a line to the end of the queue
func (q *Queue) Append(line string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lines = append(q.lines, line)
}

// Lines returns a snapshot of every line captured so far
func (q *Queue) Lines() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]string(nil), q.lines...)
}

// Len returns the number of captured lines
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.lines)
}
