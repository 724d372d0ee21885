package watermark

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"watermark_remover/config"
	"watermark_remover/pdf/pdftest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRemoval(t *testing.T) {
	var content bytes.Buffer
	content.Write(pdftest.DrawImage(0))
	content.Write(pdftest.DrawImage(1))

	doc := pdftest.Doc{
		Producer: "Acme Writer Version 6.1",
		Pages: []pdftest.Page{{
			Content: content.Bytes(),
			Images:  []pdftest.Image{{Width: 10, Height: 10}, {Width: 2360, Height: 1640}},
		}},
	}
	res, out := runRemove(t, config.Default(), doc)

	assert.Equal(t, "image-xref", res.Strategy)
	assert.True(t, res.Matched)
	assert.Equal(t, 1, res.Occurrences)
	assert.Equal(t, 1, res.PagesModified)

	d := reopen(t, out)
	images, err := d.Images(0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, 10, images[0].Width, "other images stay")

	content0, err := d.PageContent(0)
	require.NoError(t, err)
	assert.NotContains(t, string(content0), "/Im1 Do")
	assert.Contains(t, string(content0), "/Im0 Do")
}

func TestImageRemovalBothOrientations(t *testing.T) {
	for _, dims := range []pdftest.Image{{Width: 2360, Height: 1640}, {Width: 1640, Height: 2360}} {
		t.Run(fmt.Sprintf("%dx%d", dims.Width, dims.Height), func(t *testing.T) {
			doc := pdftest.Doc{
				Producer: "Version 1.7",
				Pages: []pdftest.Page{{
					Content: pdftest.DrawImage(0),
					Images:  []pdftest.Image{dims},
				}},
			}
			res, out := runRemove(t, config.Default(), doc)

			require.True(t, res.Matched)
			images, err := reopen(t, out).Images(0)
			require.NoError(t, err)
			assert.Empty(t, images)
		})
	}
}

func TestImageNoMatch(t *testing.T) {
	doc := pdftest.Doc{
		Producer: "Version 1.7",
		Pages: []pdftest.Page{{
			Content: pdftest.DrawImage(0),
			Images:  []pdftest.Image{{Width: 500, Height: 500}},
		}},
	}
	res, out := runRemove(t, config.Default(), doc)

	assert.Equal(t, "image-xref", res.Strategy)
	assert.False(t, res.Matched)
	assert.Zero(t, res.PagesModified)

	d := reopen(t, out)
	images, err := d.Images(0)
	require.NoError(t, err)
	require.Len(t, images, 1)

	content0, err := d.PageContent(0)
	require.NoError(t, err)
	assert.Contains(t, string(content0), "/Im0 Do")
}

func TestImageFirstMatchWins(t *testing.T) {
	var content bytes.Buffer
	content.Write(pdftest.DrawImage(0))
	content.Write(pdftest.DrawImage(1))

	doc := pdftest.Doc{
		Producer: "Version 2",
		Pages: []pdftest.Page{{
			Content: content.Bytes(),
			Images:  []pdftest.Image{{Width: 2360, Height: 1640}, {Width: 1640, Height: 2360}},
		}},
	}
	res, out := runRemove(t, config.Default(), doc)

	require.True(t, res.Matched)
	assert.Equal(t, 1, res.Occurrences)

	images, err := reopen(t, out).Images(0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, 1640, images[0].Width, "the candidate with the lowest object number goes first")
}

func TestImageDeletionFailureIsIOError(t *testing.T) {
	// The matching image sits on a page whose content stream cannot be
	// decoded, so scrubbing its draw operator fails mid-deletion.
	doc := pdftest.Doc{
		Producer: "Version 1.7",
		Pages: []pdftest.Page{{
			CorruptContent: true,
			Images:         []pdftest.Image{{Width: 2360, Height: 1640}},
		}},
	}

	var out bytes.Buffer
	_, err := New(config.Default(), testLogger()).Remove(context.Background(),
		bytes.NewReader(pdftest.Build(doc)), &out, nil)
	require.Error(t, err)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "delete watermark image", ioErr.Op)
	assert.Zero(t, out.Len(), "failed run must not produce output")
}

func TestImageScanIgnoresLaterPages(t *testing.T) {
	doc := pdftest.Doc{
		Producer: "Version 3",
		Pages: []pdftest.Page{
			{Content: []byte("BT (first) Tj ET\n")},
			{Content: pdftest.DrawImage(0), Images: []pdftest.Image{{Width: 2360, Height: 1640}}},
		},
	}
	res, out := runRemove(t, config.Default(), doc)

	assert.False(t, res.Matched)

	images, err := reopen(t, out).Images(1)
	require.NoError(t, err)
	assert.Len(t, images, 1, "images beyond the first page are out of scope")
}
