// Package pdftest assembles small, valid PDF files byte by byte for tests.
// Objects are laid out sequentially and the cross-reference table is computed
// from the actual offsets, so the output round-trips through strict parsers.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
)

// Image declares an image XObject on a page. The pixel payload is synthetic;
// only the declared dimensions matter to consumers.
type Image struct {
	Width  int
	Height int
}

// Page declares one page. Content holds the raw (uncompressed) content
// stream; the builder compresses it with FlateDecode. CorruptContent swaps
// the compressed bytes for garbage: the file still reads and validates, but
// decoding that page's content stream fails. Images are registered in the
// page's XObject resources as /Im0, /Im1, ... in slice order.
type Page struct {
	Content        []byte
	CorruptContent bool
	Images         []Image
}

// Doc declares a document. An empty Producer omits the info dictionary entry.
type Doc struct {
	Producer string
	Pages    []Page
}

// Build assembles the document into PDF bytes.
func Build(doc Doc) []byte {
	var buf bytes.Buffer
	offsets := map[int]int{}

	writeObj := func(nr int, body string) {
		offsets[nr] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", nr, body)
	}
	writeStream := func(nr int, extra string, data []byte) {
		offsets[nr] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d /Filter /FlateDecode%s >>\nstream\n", nr, len(data), extra)
		buf.Write(data)
		buf.WriteString("\nendstream\nendobj\n")
	}

	// Assign object numbers: catalog, pages node, then per page the page
	// object, its content stream and its images, finally the info dict.
	nextNr := 3
	pageNrs := make([]int, len(doc.Pages))
	contentNrs := make([]int, len(doc.Pages))
	imageNrs := make([][]int, len(doc.Pages))
	for i, p := range doc.Pages {
		pageNrs[i] = nextNr
		nextNr++
		contentNrs[i] = nextNr
		nextNr++
		imageNrs[i] = make([]int, len(p.Images))
		for j := range p.Images {
			imageNrs[i][j] = nextNr
			nextNr++
		}
	}
	infoNr := 0
	if doc.Producer != "" {
		infoNr = nextNr
		nextNr++
	}
	size := nextNr

	buf.WriteString("%PDF-1.7\n")

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(doc.Pages))
	for i, nr := range pageNrs {
		kids[i] = fmt.Sprintf("%d 0 R", nr)
	}
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(doc.Pages)))

	for i, p := range doc.Pages {
		var res strings.Builder
		res.WriteString("<< ")
		if len(p.Images) > 0 {
			res.WriteString("/XObject << ")
			for j, nr := range imageNrs[i] {
				fmt.Fprintf(&res, "/Im%d %d 0 R ", j, nr)
			}
			res.WriteString(">> ")
		}
		res.WriteString(">>")

		writeObj(pageNrs[i], fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>",
			res.String(), contentNrs[i]))

		contentData := deflate(p.Content)
		if p.CorruptContent {
			// A zero first byte is never a valid zlib header.
			contentData = []byte{0x00, 0xDE, 0xAD, 0xBE, 0xEF}
		}
		writeStream(contentNrs[i], "", contentData)

		for j, img := range p.Images {
			// Distinct payloads keep the optimizer from merging images.
			payload := deflate([]byte{byte(i), byte(j), 0xFF})
			extra := fmt.Sprintf(
				" /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8",
				img.Width, img.Height)
			writeStream(imageNrs[i][j], extra, payload)
		}
	}

	if infoNr != 0 {
		writeObj(infoNr, fmt.Sprintf("<< /Producer (%s) >>", escapeString(doc.Producer)))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for nr := 1; nr < size; nr++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[nr])
	}

	trailer := fmt.Sprintf("/Size %d /Root 1 0 R", size)
	if infoNr != 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", infoNr)
	}
	fmt.Fprintf(&buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xrefOffset)

	return buf.Bytes()
}

// TextRun returns a content stream fragment positioning the text cursor and
// showing a hex string, the shape produced by generators that embed text
// watermarks.
func TextRun(x, y int, hexDigits string) []byte {
	return []byte(fmt.Sprintf("BT\n1 0 0 1 %d %d Td\n<%s> Tj\nET\n", x, y, hexDigits))
}

// DrawImage returns a content stream fragment drawing the page's image with
// the given resource index.
func DrawImage(index int) []byte {
	return []byte(fmt.Sprintf("q 612 0 0 792 0 0 cm /Im%d Do Q\n", index))
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
