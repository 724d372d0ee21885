package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Image describes an image XObject referenced by a page.
type Image struct {
	ObjNr  int // cross-reference object number
	Width  int // pixels
	Height int // pixels
}

// Images returns the image XObjects referenced by a page, ordered by object
// number. Dict iteration order is randomized, so the sort keeps candidate
// order stable across runs.
func (d *Document) Images(page int) ([]Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	xObjects, err := d.pageXObjectDict(page)
	if err != nil {
		return nil, err
	}
	if xObjects == nil {
		return nil, nil
	}

	seen := map[int]bool{}
	images := []Image{}
	for _, obj := range xObjects {
		ir, ok := obj.(types.IndirectRef)
		if !ok {
			continue
		}
		objNr := ir.ObjectNumber.Value()
		if seen[objNr] {
			continue
		}
		seen[objNr] = true

		sd, _, err := d.ctx.DereferenceStreamDict(ir)
		if err != nil || sd == nil || !isImage(sd) {
			continue
		}
		img := Image{ObjNr: objNr}
		if w := sd.IntEntry("Width"); w != nil {
			img.Width = *w
		}
		if h := sd.IntEntry("Height"); h != nil {
			img.Height = *h
		}
		images = append(images, img)
	}

	sort.Slice(images, func(i, j int) bool { return images[i].ObjNr < images[j].ObjNr })
	return images, nil
}

// DeleteImage removes the image with the given object number from a page:
// the XObject resource entries pointing at it are dropped, the object is
// freed in the cross-reference table, and Do operators drawing it are removed
// from the page's content stream. Passing an object number that is not an
// image on that page is an error.
func (d *Document) DeleteImage(page, objNr int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.ctx.Table[objNr]
	if !ok || entry == nil || entry.Free {
		return fmt.Errorf("image object %d not found", objNr)
	}
	sd, ok := entry.Object.(types.StreamDict)
	if !ok || !isImage(&sd) {
		return fmt.Errorf("object %d is not an image", objNr)
	}

	xObjects, err := d.pageXObjectDict(page)
	if err != nil {
		return err
	}
	if xObjects == nil {
		return fmt.Errorf("page %d has no image resources", page)
	}

	var names []string
	for name, obj := range xObjects {
		if ir, ok := obj.(types.IndirectRef); ok && ir.ObjectNumber.Value() == objNr {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("image object %d is not referenced on page %d", objNr, page)
	}
	sort.Strings(names)

	for _, name := range names {
		delete(xObjects, name)
	}
	if err := d.ctx.FreeObject(objNr); err != nil {
		return fmt.Errorf("free image object %d: %w", objNr, err)
	}

	return d.dropDrawOps(page, names)
}

// pageResources resolves the resource dictionary for a page, falling back to
// resources inherited from the page tree.
func (d *Document) pageResources(page int) (types.Dict, error) {
	if page < 0 || page >= d.ctx.PageCount {
		return nil, fmt.Errorf("page index %d out of range [0,%d)", page, d.ctx.PageCount)
	}
	pageDict, _, pAttrs, err := d.ctx.PageDict(page+1, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", page, err)
	}
	if pageDict != nil {
		if obj, found := pageDict.Find("Resources"); found && obj != nil {
			res, err := d.ctx.DereferenceDict(obj)
			if err != nil {
				return nil, fmt.Errorf("page %d: resources: %w", page, err)
			}
			if res != nil {
				return res, nil
			}
		}
	}
	if pAttrs != nil && pAttrs.Resources != nil {
		return pAttrs.Resources, nil
	}
	return nil, nil
}

// pageXObjectDict returns the XObject resource dictionary for a page, or nil
// if the page has none.
func (d *Document) pageXObjectDict(page int) (types.Dict, error) {
	res, err := d.pageResources(page)
	if err != nil || res == nil {
		return nil, err
	}
	obj, found := res.Find("XObject")
	if !found || obj == nil {
		return nil, nil
	}
	xd, err := d.ctx.DereferenceDict(obj)
	if err != nil {
		return nil, fmt.Errorf("page %d: XObject resources: %w", page, err)
	}
	return xd, nil
}

// dropDrawOps strips Do operators for the given XObject names from a page's
// content stream.
func (d *Document) dropDrawOps(page int, names []string) error {
	content, err := d.pageContent(page)
	if err != nil {
		return err
	}
	if len(content) == 0 {
		return nil
	}

	modified := content
	for _, name := range names {
		re := regexp.MustCompile(`/` + regexp.QuoteMeta(name) + `\s+Do`)
		modified = re.ReplaceAll(modified, nil)
	}
	if bytes.Equal(modified, content) {
		return nil
	}
	return d.setPageContent(page, modified)
}

func isImage(sd *types.StreamDict) bool {
	subtype, found := sd.Find("Subtype")
	if !found {
		return false
	}
	name, ok := subtype.(types.Name)
	return ok && name == "Image"
}
