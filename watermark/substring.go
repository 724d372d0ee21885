package watermark

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"watermark_remover/config"
	"watermark_remover/pdf"

	"github.com/sirupsen/logrus"
)

// SubstringStrategy strips text watermarks. Generators that stamp text onto
// every page emit the same show-text sequence each time, so the watermark is
// the most frequent fixed-length byte run following the text positioning
// marker in the first page's content stream. Discovery runs once on the
// first page; removal then strips every occurrence from all pages in
// parallel.
type SubstringStrategy struct {
	cfg config.Config
	log *logrus.Logger
}

func (s *SubstringStrategy) Name() string { return "common-substring" }

// Apply discovers the watermark pattern on the first page, then removes it
// from every page. Discovery always completes before any page is rewritten.
func (s *SubstringStrategy) Apply(ctx context.Context, doc *pdf.Document, report *Reporter) (*Result, error) {
	res := &Result{Strategy: s.Name()}

	if err := ctxError(ctx, s.cfg.Timeout); err != nil {
		return res, err
	}

	report.Report("scanning first page for watermark pattern", 0.1)
	content, err := doc.PageContent(0)
	if err != nil {
		return res, &ParseError{Op: "read first page content", Err: err}
	}

	pattern := findPattern(content, s.cfg.MarkerBytes(), s.cfg.PatternLength)
	if pattern == nil {
		s.log.Debug("no watermark pattern on first page")
		report.Report("no watermark pattern found", 0.2)
		return res, nil
	}
	res.Matched = true
	s.log.WithFields(logrus.Fields{
		"pattern_length": len(pattern),
		"pages":          doc.PageCount(),
	}).Info("watermark pattern identified")
	report.Report("watermark pattern identified", 0.2)

	if err := s.removeFromPages(ctx, doc, pattern, report, res); err != nil {
		return res, err
	}
	return res, nil
}

// A watermark run repeats across its page; a candidate seen only once is
// ordinary content. Discovery rejects singletons so a second pass over an
// already cleaned document finds nothing to strip.
const minPatternFrequency = 2

// findPattern returns the most frequent run of n bytes following marker in
// content. Marker occurrences with fewer than n bytes left are skipped.
// Frequency ties resolve to the run encountered first, keeping the choice
// deterministic. Returns nil when no run repeats often enough to count as a
// watermark.
func findPattern(content, marker []byte, n int) []byte {
	counts := map[string]int{}
	var order []string

	for i := 0; i < len(content); {
		j := bytes.Index(content[i:], marker)
		if j < 0 {
			break
		}
		start := i + j + len(marker)
		if start+n <= len(content) {
			cand := string(content[start : start+n])
			if counts[cand] == 0 {
				order = append(order, cand)
			}
			counts[cand]++
		}
		i = start
	}

	best := ""
	bestCount := 0
	for _, cand := range order {
		if counts[cand] > bestCount {
			best = cand
			bestCount = counts[cand]
		}
	}
	if bestCount < minPatternFrequency {
		return nil
	}
	return []byte(best)
}

// removeFromPages strips pattern from every page using a bounded worker
// pool. Failing pages do not stop the others; their errors are collected and
// reported together once the pool has drained. Cancellation stops scheduling
// new pages while in-flight pages run to completion.
func (s *SubstringStrategy) removeFromPages(ctx context.Context, doc *pdf.Document, pattern []byte, report *Reporter, res *Result) error {
	pageCount := doc.PageCount()
	workers := s.cfg.MaxConcurrentPages
	if workers < 1 {
		workers = 1
	}

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, workers)
		mu        sync.Mutex
		pageErrs  []*PageError
		completed int
	)

scheduling:
	for page := 0; page < pageCount; page++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break scheduling
		}

		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			defer func() { <-sem }()

			removed, delta, err := s.processPage(doc, pattern, page)

			mu.Lock()
			if err != nil {
				pageErrs = append(pageErrs, &PageError{Page: page, Err: err})
			} else if removed > 0 {
				res.PagesModified++
				res.Occurrences += removed
				res.BytesRemoved += delta
			}
			completed++
			// Reporting inside the lock keeps the rendered page counts
			// and fractions monotonic across workers.
			report.Report(
				fmt.Sprintf("processed page %d/%d", completed, pageCount),
				0.2+0.7*float64(completed)/float64(pageCount),
			)
			mu.Unlock()
		}(page)
	}
	wg.Wait()

	if err := ctxError(ctx, s.cfg.Timeout); err != nil {
		return err
	}
	if len(pageErrs) > 0 {
		return newRemovalError(pageErrs)
	}
	return nil
}

// processPage removes every occurrence of pattern from one page. Pages
// without an occurrence are left untouched.
func (s *SubstringStrategy) processPage(doc *pdf.Document, pattern []byte, page int) (int, int64, error) {
	content, err := doc.PageContent(page)
	if err != nil {
		return 0, 0, err
	}
	count := bytes.Count(content, pattern)
	if count == 0 {
		return 0, 0, nil
	}
	cleaned := bytes.ReplaceAll(content, pattern, nil)
	if err := doc.SetPageContent(page, cleaned); err != nil {
		return 0, 0, err
	}
	return count, int64(len(content) - len(cleaned)), nil
}
