package asset_engine

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"
)

var (
	ErrHashMismatch     = errors.New("hash mismatch")
	ErrSizeMismatch     = errors.New("size mismatch")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const MaxConcurrency = 32

// DownloadJob fetches URL into Dest. Hash and Size are checked when set.
type DownloadJob struct {
	Name string
	Hash string
	URL  string
	Dest string
	Size int64
}

// AcquisitionResult summarises one run. Jobs abandoned because the run was
// cancelled are neither succeeded nor failed.
type AcquisitionResult struct {
	Total       int      `json:"total"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	FailedNames []string `json:"failed_names"`
	Bytes       int64    `json:"bytes"`
}

func (r AcquisitionResult) OK() bool { return r.Failed == 0 }

// Complete reports whether every job reached a final state.
func (r AcquisitionResult) Complete() bool { return r.Succeeded+r.Failed == r.Total }

// Merge adds the counters of o to r.
func (r AcquisitionResult) Merge(o AcquisitionResult) AcquisitionResult {
	r.Total += o.Total
	r.Succeeded += o.Succeeded
	r.Failed += o.Failed
	r.FailedNames = append(append([]string(nil), r.FailedNames...), o.FailedNames...)
	r.Bytes += o.Bytes
	return r
}

type Options struct {
	Concurrency      int           `yaml:"concurrency"`
	Attempts         int           `yaml:"attempts"`
	BaseDelay        time.Duration `yaml:"baseDelay"`
	JobTimeout       time.Duration `yaml:"jobTimeout"`
	ProgressInterval time.Duration `yaml:"progressInterval"`
}

func (o Options) Defaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.Concurrency > MaxConcurrency {
		o.Concurrency = MaxConcurrency
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 30 * time.Second
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 250 * time.Millisecond
	}
	return o
}

// Downloader runs download jobs on a fixed pool of workers.
type Downloader struct {
	Files   billy.Filesystem
	Client  *http.Client
	Options Options
	Metrics *Metrics
	log     *zap.Logger
}

func NewDownloader(files billy.Filesystem, client *http.Client, opts Options, metrics *Metrics, log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{Files: files, Client: client, Options: opts.Defaults(), Metrics: metrics, log: log}
}

// Run downloads every job once, removing jobs that share a destination.
// Cancelling ctx stops dispatch and aborts pending retries.
func (d *Downloader) Run(ctx context.Context, jobs []DownloadJob, onProgress ProgressFunc) AcquisitionResult {
	jobs = dedupJobs(jobs)
	t := newTracker(len(jobs), d.Options.ProgressInterval, onProgress)
	if len(jobs) == 0 {
		return t.result()
	}

	workers := min(d.Options.Concurrency, len(jobs))
	queue := make(chan DownloadJob)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for job := range queue {
				d.process(ctx, job, t)
			}
			return nil
		})
	}

feed:
	for _, job := range jobs {
		select {
		case queue <- job:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	_ = g.Wait()

	res := t.result()
	d.log.Info("Download run finished",
		zap.Int("total", res.Total),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Bool("cancelled", ctx.Err() != nil))
	return res
}

func (d *Downloader) process(ctx context.Context, job DownloadJob, t *tracker) {
	var lastErr error
	for attempt := 1; attempt <= d.Options.Attempts; attempt++ {
		if attempt > 1 {
			d.Metrics.retried()
			if !sleep(ctx, time.Duration(attempt-1)*d.Options.BaseDelay) {
				return
			}
		}
		n, err := d.fetch(ctx, job)
		if err == nil {
			d.Metrics.succeeded(n)
			t.succeed(job.Name, n)
			return
		}
		lastErr = err
		if ctx.Err() != nil {
			return
		}
		d.log.Debug("Download attempt failed", zap.String("name", job.Name), zap.Int("attempt", attempt), zap.Error(err))
	}
	d.log.Warn("Download failed", zap.String("name", job.Name), zap.String("url", job.URL), zap.Error(lastErr))
	d.Metrics.failed()
	t.fail(job.Name, lastErr)
}

func sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// fetch streams one attempt into Dest+".part" and renames it once verified.
func (d *Downloader) fetch(ctx context.Context, job DownloadJob) (int64, error) {
	jobCtx, cancel := context.WithTimeout(ctx, d.Options.JobTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(jobCtx, http.MethodGet, job.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	if err := d.Files.MkdirAll(path.Dir(job.Dest), 0755); err != nil {
		return 0, err
	}
	tmp := job.Dest + ".part"
	n, sum, err := d.writeTemp(tmp, resp.Body)
	if err == nil {
		err = verify(job, n, sum)
	}
	if err != nil {
		_ = d.Files.Remove(tmp)
		return n, err
	}
	_ = d.Files.Remove(job.Dest)
	if err := d.Files.Rename(tmp, job.Dest); err != nil {
		return n, err
	}
	return n, nil
}

func (d *Downloader) writeTemp(tmp string, r io.Reader) (n int64, sum string, err error) {
	f, err := d.Files.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, "", err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()
	h := sha1.New()
	n, err = io.Copy(io.MultiWriter(f, h), r)
	return n, hex.EncodeToString(h.Sum(nil)), err
}

func verify(job DownloadJob, n int64, sum string) error {
	if job.Size > 0 && n != job.Size {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, job.Size)
	}
	if job.Hash != "" && !strings.EqualFold(sum, job.Hash) {
		return fmt.Errorf("%w: got %s", ErrHashMismatch, sum)
	}
	return nil
}

func dedupJobs(jobs []DownloadJob) []DownloadJob {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]DownloadJob, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := seen[j.Dest]; ok {
			continue
		}
		seen[j.Dest] = struct{}{}
		out = append(out, j)
	}
	return out
}
