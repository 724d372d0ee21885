package api

import (
	"os"
	"sync"
	"time"

	"watermark_remover/watermark"

	"github.com/sirupsen/logrus"
)

// JobState tracks where an upload is in its lifecycle.
type JobState string

const (
	JobProcessing  JobState = "processing"
	JobCompleted   JobState = "completed"
	JobNoWatermark JobState = "no_watermark"
	JobFailed      JobState = "failed"
)

// Job is one upload being processed. The registry owns the canonical value;
// handlers get snapshot copies.
type Job struct {
	ID       string            `json:"id"`
	Filename string            `json:"filename"`
	State    JobState          `json:"state"`
	Status   string            `json:"status"`
	Progress float64           `json:"progress"`
	Error    string            `json:"error,omitempty"`
	Result   *watermark.Result `json:"result,omitempty"`
	Created  time.Time         `json:"created"`
	Updated  time.Time         `json:"updated"`

	outputPath string
}

func (j *Job) finished() bool { return j.State != JobProcessing }

type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: map[string]*Job{}}
}

func (r *jobRegistry) add(id, filename string) {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &Job{
		ID:       id,
		Filename: filename,
		State:    JobProcessing,
		Status:   "queued",
		Created:  now,
		Updated:  now,
	}
}

// get returns a snapshot of the job. The snapshot stays valid after the
// registry moves on.
func (r *jobRegistry) get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (r *jobRegistry) setProgress(id, status string, progress float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.finished() {
		return
	}
	j.Status = status
	j.Progress = progress
	j.Updated = time.Now()
}

func (r *jobRegistry) finish(id string, res *watermark.Result, outputPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.State = JobCompleted
	if !res.Matched {
		j.State = JobNoWatermark
	}
	j.Status = "complete"
	j.Progress = 1.0
	j.Result = res
	j.outputPath = outputPath
	j.Updated = time.Now()
}

func (r *jobRegistry) fail(id string, err error) {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return
	}
	j.State = JobFailed
	j.Status = "failed"
	j.Error = msg
	j.Updated = time.Now()
}

// expire drops finished jobs untouched for longer than retention and returns
// the dropped snapshots so the caller can delete their files.
func (r *jobRegistry) expire(retention time.Duration) []Job {
	cutoff := time.Now().Add(-retention)
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []Job
	for id, j := range r.jobs {
		if j.finished() && j.Updated.Before(cutoff) {
			dropped = append(dropped, *j)
			delete(r.jobs, id)
		}
	}
	return dropped
}

// sweep expires finished jobs and removes their output files. Returns how
// many jobs were dropped.
func (r *jobRegistry) sweep(retention time.Duration, log *logrus.Logger) int {
	dropped := r.expire(retention)
	for _, j := range dropped {
		if j.outputPath != "" {
			os.Remove(j.outputPath)
		}
		log.WithFields(logrus.Fields{
			"job":   j.ID,
			"state": j.State,
		}).Debug("expired job cleaned up")
	}
	return len(dropped)
}

// janitor periodically sweeps expired jobs.
func (r *jobRegistry) janitor(interval, retention time.Duration, log *logrus.Logger) {
	for {
		time.Sleep(interval)
		r.sweep(retention, log)
	}
}
