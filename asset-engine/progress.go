package asset_engine

import (
	"fmt"
	"sync"
	"time"
)

// IndexShare is the head of the 0-100 progress scale reserved for fetching
// the asset index. Downloads fill the remaining tail.
const IndexShare = 10

type Progress struct {
	Percent        int
	Total          int
	Done           int
	Message        string
	BytesPerSecond float64
}

type ProgressFunc func(Progress)

// tracker holds every counter shared by the workers of one run.
type tracker struct {
	mu          sync.Mutex
	total       int
	succeeded   int
	failed      int
	failedNames []string
	bytes       int64

	interval    time.Duration
	lastReport  time.Time
	windowBytes int64
	onProgress  ProgressFunc
	now         func() time.Time
}

func newTracker(total int, interval time.Duration, onProgress ProgressFunc) *tracker {
	return &tracker{
		total:      total,
		interval:   interval,
		lastReport: time.Now(),
		onProgress: onProgress,
		now:        time.Now,
	}
}

func (t *tracker) succeed(name string, n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.succeeded++
	t.bytes += n
	t.windowBytes += n
	t.report(name)
}

func (t *tracker) fail(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
	t.failedNames = append(t.failedNames, fmt.Sprintf("%s (%s)", name, err))
	t.report(name)
}

// report runs with mu held so listeners see a monotonic sequence.
func (t *tracker) report(name string) {
	if t.onProgress == nil {
		return
	}
	done := t.succeeded + t.failed
	now := t.now()
	elapsed := now.Sub(t.lastReport)
	if done != t.total && elapsed < t.interval {
		return
	}
	var rate float64
	if elapsed > 0 {
		rate = float64(t.windowBytes) / elapsed.Seconds()
	}
	t.lastReport = now
	t.windowBytes = 0
	t.onProgress(Progress{
		Percent:        Percent(done, t.total),
		Total:          t.total,
		Done:           done,
		Message:        fmt.Sprintf("Downloaded %s (%d/%d)", name, done, t.total),
		BytesPerSecond: rate,
	})
}

func (t *tracker) result() AcquisitionResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return AcquisitionResult{
		Total:       t.total,
		Succeeded:   t.succeeded,
		Failed:      t.failed,
		FailedNames: append([]string(nil), t.failedNames...),
		Bytes:       t.bytes,
	}
}

// Percent maps done out of total onto the download tail of the scale.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return IndexShare + done*(100-IndexShare)/total
}

// Phases splits the 0-100 scale between consecutive stages of one
// acquisition. Reported percents never go backwards.
type Phases struct {
	mu         sync.Mutex
	onProgress ProgressFunc
	last       int
}

func NewPhases(onProgress ProgressFunc) *Phases {
	return &Phases{onProgress: onProgress}
}

// Stage maps the progress of one stage onto lo-hi of the overall scale.
func (p *Phases) Stage(lo, hi int) ProgressFunc {
	if p.onProgress == nil {
		return nil
	}
	return func(pr Progress) {
		pr.Percent = lo + pr.Percent*(hi-lo)/100
		p.mu.Lock()
		defer p.mu.Unlock()
		if pr.Percent < p.last {
			pr.Percent = p.last
		}
		p.last = pr.Percent
		p.onProgress(pr)
	}
}
