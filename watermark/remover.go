package watermark

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"watermark_remover/config"
	"watermark_remover/pdf"

	"github.com/sirupsen/logrus"
)

// Remover runs the complete removal flow: open the document, select a
// strategy from its metadata, apply it, serialize the result.
type Remover struct {
	cfg config.Config
	log *logrus.Logger
}

// New returns a Remover using cfg. A nil logger disables logging.
func New(cfg config.Config, log *logrus.Logger) *Remover {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Remover{cfg: cfg, log: log}
}

// Remove reads a document from rs, removes its watermark and writes the
// cleaned document to w. Nothing is written to w unless the removal itself
// succeeded; callers needing an atomic file on disk use RemoveFile. A
// document without a watermark is a success with Matched false and is still
// written out.
func (r *Remover) Remove(ctx context.Context, rs io.ReadSeeker, w io.Writer, progress ProgressFunc) (*Result, error) {
	report := NewReporter(progress)

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	report.Report("analyzing document", 0)
	doc, err := pdf.Read(rs)
	if err != nil {
		if cerr := ctxError(ctx, r.cfg.Timeout); cerr != nil {
			return nil, cerr
		}
		return nil, &ParseError{Op: "open document", Err: err}
	}

	producer := doc.Producer()
	strategy := SelectStrategy(producer, r.cfg, r.log)
	r.log.WithFields(logrus.Fields{
		"strategy": strategy.Name(),
		"producer": producer,
		"pages":    doc.PageCount(),
	}).Info("strategy selected")
	report.Report(strategy.Name()+" strategy selected", 0.05)

	res, err := strategy.Apply(ctx, doc, report)
	if err != nil {
		return res, err
	}

	if err := ctxError(ctx, r.cfg.Timeout); err != nil {
		return res, err
	}
	report.Report("saving document", 0.9)
	if err := doc.Write(w); err != nil {
		return res, &IOError{Op: "write document", Err: err}
	}
	report.Report("complete", 1.0)
	return res, nil
}

// RemoveFile processes inPath into outPath. The output appears atomically:
// the document is written to a temp file next to outPath and renamed into
// place only after the whole run succeeded, so a failed run leaves no
// partial output behind.
func (r *Remover) RemoveFile(ctx context.Context, inPath, outPath string, progress ProgressFunc) (*Result, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, &IOError{Op: "open", Path: inPath, Err: err}
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".watermark-*.pdf")
	if err != nil {
		return nil, &IOError{Op: "create temp file in", Path: filepath.Dir(outPath), Err: err}
	}
	tmpPath := tmp.Name()

	res, err := r.Remove(ctx, in, tmp, progress)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return res, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return res, &IOError{Op: "close temp file", Path: tmpPath, Err: err}
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return res, &IOError{Op: "rename output to", Path: outPath, Err: err}
	}

	r.log.WithFields(logrus.Fields{
		"input":    inPath,
		"output":   outPath,
		"strategy": res.Strategy,
		"matched":  res.Matched,
	}).Info("document processed")
	return res, nil
}
