// Package pdf wraps the pdfcpu library behind a small accessor used by the
// watermark removal engine. Pages are addressed by zero-based index; the
// conversion to pdfcpu's one-based numbering happens here and nowhere else.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Document is a PDF held in memory. All methods are safe for concurrent use;
// mutations go through the internal mutex so that parallel page workers can
// share one document.
type Document struct {
	mu  sync.Mutex
	ctx *model.Context
}

// Open reads and validates the PDF at path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read reads and validates a PDF from rs.
func Read(rs io.ReadSeeker) (*Document, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	return &Document{ctx: ctx}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Metadata returns the string-valued entries of the document info dictionary.
// Missing or unreadable info yields an empty map, not an error.
func (d *Document) Metadata() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	md := map[string]string{}
	if d.ctx.Info == nil {
		return md
	}
	dict, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil || dict == nil {
		return md
	}
	for key, val := range dict {
		obj, err := d.ctx.Dereference(val)
		if err != nil {
			continue
		}
		if s, ok := stringValue(obj); ok {
			md[key] = s
		}
	}
	return md
}

// Producer returns the Producer entry of the info dictionary, or the empty
// string if the document has none.
func (d *Document) Producer() string {
	return d.Metadata()["Producer"]
}

// PageContent returns the decoded content stream bytes of a page. Pages with
// multiple content streams are concatenated with a newline between streams,
// matching how consumers interpret them. A page without contents yields nil.
func (d *Document) PageContent(page int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pageContent(page)
}

func (d *Document) pageContent(page int) ([]byte, error) {
	pageDict, err := d.pageDict(page)
	if err != nil {
		return nil, err
	}

	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return nil, nil
	}

	switch o := obj.(type) {
	case types.IndirectRef:
		return d.streamContent(o)
	case types.Array:
		var buf bytes.Buffer
		for _, elem := range o {
			ir, ok := elem.(types.IndirectRef)
			if !ok {
				return nil, fmt.Errorf("page %d: content array element is not an indirect reference", page)
			}
			data, err := d.streamContent(ir)
			if err != nil {
				return nil, err
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.Write(data)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("page %d: unsupported Contents type %T", page, obj)
	}
}

// SetPageContent replaces the content stream of a page with data. The bytes
// are written back into the existing stream object so that object numbering
// stays independent of the order in which pages are rewritten. Pages holding
// an array of streams keep the array: the first stream receives the new
// content and the rest are emptied.
func (d *Document) SetPageContent(page int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPageContent(page, data)
}

func (d *Document) setPageContent(page int, data []byte) error {
	pageDict, err := d.pageDict(page)
	if err != nil {
		return err
	}

	obj, found := pageDict.Find("Contents")
	if !found || obj == nil {
		return d.insertContents(pageDict, data)
	}

	switch o := obj.(type) {
	case types.IndirectRef:
		return d.rewriteStream(o, data)
	case types.Array:
		if len(o) == 0 {
			return d.insertContents(pageDict, data)
		}
		for i, elem := range o {
			ir, ok := elem.(types.IndirectRef)
			if !ok {
				return fmt.Errorf("page %d: content array element is not an indirect reference", page)
			}
			if i == 0 {
				err = d.rewriteStream(ir, data)
			} else {
				err = d.rewriteStream(ir, nil)
			}
			if err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("page %d: unsupported Contents type %T", page, obj)
	}
}

// Write serializes the document to w.
func (d *Document) Write(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := api.WriteContext(d.ctx, w); err != nil {
		return fmt.Errorf("pdfcpu write: %w", err)
	}
	return nil
}

// WriteFile serializes the document to path.
func (d *Document) WriteFile(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := api.WriteContextFile(d.ctx, path); err != nil {
		return fmt.Errorf("pdfcpu write %s: %w", path, err)
	}
	return nil
}

// pageDict resolves the page dictionary for a zero-based page index.
func (d *Document) pageDict(page int) (types.Dict, error) {
	if page < 0 || page >= d.ctx.PageCount {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", page, d.ctx.PageCount)
	}
	pageDict, _, _, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d: no page dictionary", page)
	}
	return pageDict, nil
}

// streamContent decodes one content stream object.
func (d *Document) streamContent(ir types.IndirectRef) ([]byte, error) {
	sd, _, err := d.ctx.DereferenceStreamDict(ir)
	if err != nil {
		return nil, fmt.Errorf("object %d: dereference content stream: %w", ir.ObjectNumber.Value(), err)
	}
	if sd == nil {
		return nil, fmt.Errorf("object %d: content stream missing", ir.ObjectNumber.Value())
	}
	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("object %d: decode content stream: %w", ir.ObjectNumber.Value(), err)
	}
	out := make([]byte, len(sd.Content))
	copy(out, sd.Content)
	return out, nil
}

// rewriteStream replaces the bytes of an existing stream object in place.
func (d *Document) rewriteStream(ir types.IndirectRef, data []byte) error {
	objNr := ir.ObjectNumber.Value()
	entry, ok := d.ctx.Table[objNr]
	if !ok || entry == nil || entry.Free {
		return fmt.Errorf("object %d: no such stream object", objNr)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok {
		return fmt.Errorf("object %d: not a stream object", objNr)
	}
	sd.Content = data
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("object %d: encode content stream: %w", objNr, err)
	}
	entry.Object = sd
	return nil
}

// insertContents creates a fresh content stream object for a page that has
// none and hooks it into the page dictionary.
func (d *Document) insertContents(pageDict types.Dict, data []byte) error {
	sd := types.StreamDict{
		Dict: types.Dict{
			"Length": types.Integer(0),
			"Filter": types.Name("FlateDecode"),
		},
		FilterPipeline: []types.PDFFilter{{Name: "FlateDecode"}},
		Content:        data,
	}
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("encode content stream: %w", err)
	}
	ir, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return fmt.Errorf("allocate content stream object: %w", err)
	}
	pageDict.Update("Contents", *ir)
	return nil
}

// stringValue extracts a Go string from a PDF string-ish object.
func stringValue(o types.Object) (string, bool) {
	switch v := o.(type) {
	case types.StringLiteral:
		if s, err := types.StringLiteralToString(v); err == nil {
			return s, true
		}
		return v.Value(), true
	case types.HexLiteral:
		if s, err := types.HexLiteralToString(v); err == nil {
			return s, true
		}
		return "", false
	case types.Name:
		return v.Value(), true
	}
	return "", false
}
