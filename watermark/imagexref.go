package watermark

import (
	"context"

	"watermark_remover/config"
	"watermark_remover/pdf"

	"github.com/sirupsen/logrus"
)

// ImageStrategy deletes a watermark image from the first page. The watermark
// is recognized purely by its pixel dimensions; generators emit it in one of
// two fixed sizes depending on page orientation.
type ImageStrategy struct {
	cfg config.Config
	log *logrus.Logger
}

func (s *ImageStrategy) Name() string { return "image-xref" }

// Apply scans the first page for an image with watermark dimensions and
// deletes the first one it finds. Candidates are ordered by object number,
// so repeated runs pick the same image.
func (s *ImageStrategy) Apply(ctx context.Context, doc *pdf.Document, report *Reporter) (*Result, error) {
	res := &Result{Strategy: s.Name()}

	if err := ctxError(ctx, s.cfg.Timeout); err != nil {
		return res, err
	}

	report.Report("scanning first page images", 0.1)
	images, err := doc.Images(0)
	if err != nil {
		return res, &ParseError{Op: "list first page images", Err: err}
	}

	for _, img := range images {
		if !s.matches(img) {
			continue
		}
		s.log.WithFields(logrus.Fields{
			"object": img.ObjNr,
			"width":  img.Width,
			"height": img.Height,
		}).Info("watermark image found")

		report.Report("removing watermark image", 0.5)
		if err := doc.DeleteImage(0, img.ObjNr); err != nil {
			return res, &IOError{Op: "delete watermark image", Err: err}
		}
		res.Matched = true
		res.PagesModified = 1
		res.Occurrences = 1
		return res, nil
	}

	s.log.Debug("no image with watermark dimensions on first page")
	return res, nil
}

func (s *ImageStrategy) matches(img pdf.Image) bool {
	for _, d := range s.cfg.WatermarkDims {
		if img.Width == d.Width && img.Height == d.Height {
			return true
		}
	}
	return false
}
