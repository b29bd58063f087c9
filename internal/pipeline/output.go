package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/vinayprograms/growwit/internal/report"
	"github.com/vinayprograms/growwit/internal/session"
)

// output is the client stream of one pass. Every write is recorded in
// the session and followed by the step tracker. A write error means the
// client is gone and ends the pass.
type output struct {
	mu   sync.Mutex
	w    io.Writer
	sess *session.Session
	step *report.StepTracker
}

func newOutput(w io.Writer, sess *session.Session) *output {
	return &output{w: w, sess: sess, step: report.NewStepTracker()}
}

func (o *output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, err := o.w.Write(p)
	if n > 0 {
		chunk := string(p[:n])
		o.sess.Append(chunk)
		o.step.Observe(chunk)
	}
	return n, err
}

func (o *output) write(s string) error {
	_, err := io.WriteString(o, s)
	return err
}

func (o *output) printf(format string, args ...interface{}) error {
	return o.write(fmt.Sprintf(format, args...))
}

// Step returns the highest progress step written so far.
func (o *output) Step() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.step.Step()
}

// ordered releases results in index order as they complete, so parallel
// work still reaches the client in a fixed order.
type ordered struct {
	mu   sync.Mutex
	done []bool
	next int
	emit func(i int) error
	err  error
}

func newOrdered(n int, emit func(i int) error) *ordered {
	return &ordered{done: make([]bool, n), emit: emit}
}

// complete marks i finished and emits every finished result at the head
// of the queue. The first emit error is returned for every later call.
func (q *ordered) complete(i int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done[i] = true
	for q.err == nil && q.next < len(q.done) && q.done[q.next] {
		q.err = q.emit(q.next)
		q.next++
	}
	return q.err
}
