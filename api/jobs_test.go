package api

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"watermark_remover/watermark"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestJobRegistryLifecycle(t *testing.T) {
	reg := newJobRegistry()
	reg.add("a", "doc.pdf")

	job, ok := reg.get("a")
	require.True(t, ok)
	assert.Equal(t, JobProcessing, job.State)
	assert.Equal(t, "queued", job.Status)
	assert.Equal(t, "doc.pdf", job.Filename)

	reg.setProgress("a", "processed page 1/3", 0.4)
	job, _ = reg.get("a")
	assert.Equal(t, "processed page 1/3", job.Status)
	assert.Equal(t, 0.4, job.Progress)

	reg.finish("a", &watermark.Result{Strategy: "common-substring", Matched: true}, "/tmp/out.pdf")
	job, _ = reg.get("a")
	assert.Equal(t, JobCompleted, job.State)
	assert.Equal(t, 1.0, job.Progress)
	require.NotNil(t, job.Result)

	_, ok = reg.get("missing")
	assert.False(t, ok)
}

func TestJobFinishWithoutMatch(t *testing.T) {
	reg := newJobRegistry()
	reg.add("a", "doc.pdf")
	reg.finish("a", &watermark.Result{Strategy: "image-xref", Matched: false}, "/tmp/out.pdf")

	job, _ := reg.get("a")
	assert.Equal(t, JobNoWatermark, job.State)
}

func TestJobFailTruncatesLongErrors(t *testing.T) {
	reg := newJobRegistry()
	reg.add("a", "doc.pdf")
	reg.fail("a", errors.New(strings.Repeat("x", 300)))

	job, _ := reg.get("a")
	assert.Equal(t, JobFailed, job.State)
	assert.Len(t, job.Error, 203)
	assert.True(t, strings.HasSuffix(job.Error, "..."))
}

func TestProgressIgnoredAfterFinish(t *testing.T) {
	reg := newJobRegistry()
	reg.add("a", "doc.pdf")
	reg.finish("a", &watermark.Result{Matched: true}, "")
	reg.setProgress("a", "late report", 0.5)

	job, _ := reg.get("a")
	assert.Equal(t, "complete", job.Status)
	assert.Equal(t, 1.0, job.Progress)
}

func TestSweepExpiresFinishedJobs(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(outPath, []byte("%PDF-1.7"), 0o644))

	reg := newJobRegistry()
	reg.add("done", "a.pdf")
	reg.finish("done", &watermark.Result{Matched: true}, outPath)
	reg.add("running", "b.pdf")

	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, reg.sweep(0, discardLogger()))

	_, ok := reg.get("done")
	assert.False(t, ok, "finished job should be expired")
	_, ok = reg.get("running")
	assert.True(t, ok, "in-flight jobs never expire")
	assert.NoFileExists(t, outPath)
}
