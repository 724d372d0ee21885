// Package watermark removes embedded watermarks from PDF documents. Two
// removal strategies exist: one deletes a watermark image identified by its
// pixel dimensions, the other strips the most frequent text pattern found on
// the first page from every page. The document's Producer metadata decides
// which strategy runs.
package watermark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"watermark_remover/config"
	"watermark_remover/pdf"

	"github.com/sirupsen/logrus"
)

// Result describes what a removal run did.
type Result struct {
	Strategy      string `json:"strategy"`
	Matched       bool   `json:"matched"`
	PagesModified int    `json:"pages_modified"`
	Occurrences   int    `json:"occurrences_removed"`
	BytesRemoved  int64  `json:"bytes_removed"`
}

// Strategy removes one class of watermark from an open document.
type Strategy interface {
	// Name identifies the strategy in results and logs.
	Name() string

	// Apply scans doc, removes what it finds and reports progress through
	// report. A document without the watermark this strategy targets is not
	// an error: the result comes back with Matched false.
	Apply(ctx context.Context, doc *pdf.Document, report *Reporter) (*Result, error)
}

// SelectStrategy picks the removal strategy for a document based on its
// Producer metadata. Producers matching one of the configured patterns
// (substring match, case-sensitive) carry image watermarks; everything else,
// including documents without a producer, gets the text strategy.
func SelectStrategy(producer string, cfg config.Config, log *logrus.Logger) Strategy {
	for _, pattern := range cfg.ProducerPatterns {
		if strings.Contains(producer, pattern) {
			return &ImageStrategy{cfg: cfg, log: log}
		}
	}
	return &SubstringStrategy{cfg: cfg, log: log}
}

// ctxError maps a context state to the engine's error taxonomy. It returns
// nil while the context is live.
func ctxError(ctx context.Context, budget time.Duration) error {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return &TimeoutError{Budget: budget, Err: context.DeadlineExceeded}
	case context.Canceled:
		return fmt.Errorf("removal canceled: %w", context.Canceled)
	}
	return nil
}
