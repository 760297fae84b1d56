// Package activityqueue writes committed lending activity to
// lending_activity in batches, off the request path. It is best-effort:
// when the buffer is full new events are dropped.
package activityqueue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/5w1tchy/lending-api/internal/lending"
	"github.com/5w1tchy/lending-api/internal/store/dbx"
)

const (
	batchSize  = 100
	flushEvery = 250 * time.Millisecond
	writeTO    = 500 * time.Millisecond
	insertTmpl = `INSERT INTO lending_activity (kind, book_id, user_id, fine, occurred_at) VALUES %s`
)

type Queue struct {
	db      dbx.Runner
	ch      chan lending.Activity
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once
	dropped atomic.Int64
}

// Start spins up workers over a buffered channel.
// Suggested: buf=10000, workers=2
func Start(db dbx.Runner, buf, workers int) *Queue {
	if buf <= 0 {
		buf = 10000
	}
	if workers <= 0 {
		workers = 1
	}
	q := &Queue{
		db:   db,
		ch:   make(chan lending.Activity, buf),
		done: make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Record queues a without blocking. Events recorded after Shutdown are
// dropped.
func (q *Queue) Record(a lending.Activity) {
	select {
	case <-q.done:
		q.drop("queue stopped")
		return
	default:
	}
	select {
	case q.ch <- a:
	default:
		q.drop("buffer full")
	}
}

// Shutdown stops the workers after they flush what is buffered, then logs
// how many events were lost over the queue's lifetime.
func (q *Queue) Shutdown() {
	q.stop.Do(func() {
		close(q.done)
		q.wg.Wait()
		if n := q.Dropped(); n > 0 {
			log.Printf("[activity] stopped, %d events dropped in total", n)
		}
	})
}

// Dropped counts events that never reached the buffer.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

func (q *Queue) drop(reason string) {
	if n := q.dropped.Add(1); n == 1 || n%1000 == 0 {
		log.Printf("[activity] %s, dropped %d events so far", reason, n)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	tk := time.NewTicker(flushEvery)
	defer tk.Stop()

	batch := make([]lending.Activity, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := q.insertBatch(batch); err != nil {
			log.Printf("[activity] insert %d events failed: %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-q.done:
			for {
				select {
				case a := <-q.ch:
					batch = append(batch, a)
					if len(batch) >= batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case a := <-q.ch:
			batch = append(batch, a)
			if len(batch) >= batchSize {
				flush()
			}
		case <-tk.C:
			flush()
		}
	}
}

func (q *Queue) insertBatch(batch []lending.Activity) error {
	// VALUES ($1,$2,$3,$4,$5),($6,...)
	args := make([]any, 0, len(batch)*5)
	vals := make([]string, 0, len(batch))
	for i, a := range batch {
		p := 5 * i
		vals = append(vals, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)", p+1, p+2, p+3, p+4, p+5))
		args = append(args, string(a.Kind), a.BookID, a.UserID, a.Fine, a.OccurredAt)
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTO)
	defer cancel()
	_, err := q.db.ExecContext(ctx, fmt.Sprintf(insertTmpl, strings.Join(vals, ",")), args...)
	return err
}
