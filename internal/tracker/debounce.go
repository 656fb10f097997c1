package tracker

import (
	"sync"
	"time"
)

// debouncer holds the latest job per field and releases it after a quiet
// period. A newer job for the same field replaces the pending one.
type debouncer struct {
	delay time.Duration
	fire  func(job)

	mu      sync.Mutex
	pending map[string]*pendingJob
}

type pendingJob struct {
	timer *time.Timer
	job   job
}

func newDebouncer(delay time.Duration, fire func(job)) *debouncer {
	return &debouncer{delay: delay, fire: fire, pending: make(map[string]*pendingJob)}
}

func (d *debouncer) schedule(field string, j job) {
	if d.delay <= 0 {
		d.fire(j)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.pending[field]; ok {
		prev.timer.Stop()
	}
	p := &pendingJob{job: j}
	p.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending[field] != p {
			d.mu.Unlock()
			return
		}
		delete(d.pending, field)
		d.mu.Unlock()
		d.fire(p.job)
	})
	d.pending[field] = p
}

// flush releases every pending job now.
func (d *debouncer) flush() {
	d.mu.Lock()
	jobs := make([]job, 0, len(d.pending))
	for field, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, field)
		jobs = append(jobs, p.job)
	}
	d.mu.Unlock()

	for _, j := range jobs {
		d.fire(j)
	}
}

func (d *debouncer) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
