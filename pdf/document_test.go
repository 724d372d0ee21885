package pdf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"watermark_remover/pdf/pdftest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openFixture(t *testing.T, doc pdftest.Doc) *Document {
	t.Helper()
	d, err := Read(bytes.NewReader(pdftest.Build(doc)))
	require.NoError(t, err)
	return d
}

func TestReadBasics(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Producer: "Version 1.4 Writer",
		Pages: []pdftest.Page{
			{Content: []byte("BT (one) Tj ET")},
			{Content: []byte("BT (two) Tj ET")},
		},
	})

	assert.Equal(t, 2, d.PageCount())
	assert.Equal(t, "Version 1.4 Writer", d.Producer())
	assert.Equal(t, "Version 1.4 Writer", d.Metadata()["Producer"])
}

func TestProducerMissing(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{{Content: []byte("BT (x) Tj ET")}},
	})

	assert.Equal(t, "", d.Producer())
	assert.Empty(t, d.Metadata())
}

func TestReadRejectsGarbage(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("not a pdf at all")))
	assert.Error(t, err)
}

func TestPageContent(t *testing.T) {
	content := []byte("BT\n1 0 0 1 72 720 Td\n<48656C6C6F> Tj\nET\n")
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{{Content: content}},
	})

	got, err := d.PageContent(0)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestPageContentEmptyStream(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{{Content: nil}},
	})

	got, err := d.PageContent(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPageContentCorruptStream(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{
			{Content: []byte("BT (fine) Tj ET")},
			{CorruptContent: true},
		},
	})

	// The document itself reads fine and healthy pages stay readable.
	got, err := d.PageContent(0)
	require.NoError(t, err)
	assert.NotEmpty(t, got)

	_, err = d.PageContent(1)
	assert.ErrorContains(t, err, "decode")
}

func TestPageContentOutOfRange(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{{Content: []byte("BT ET")}},
	})

	_, err := d.PageContent(1)
	assert.Error(t, err)
	_, err = d.PageContent(-1)
	assert.Error(t, err)
}

func TestSetPageContentRoundTrip(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{
			{Content: []byte("BT (before) Tj ET")},
			{Content: []byte("BT (other) Tj ET")},
		},
	})

	replacement := []byte("BT (after) Tj ET")
	require.NoError(t, d.SetPageContent(0, replacement))

	got, err := d.PageContent(0)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)

	// The untouched page keeps its bytes.
	other, err := d.PageContent(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("BT (other) Tj ET"), other)
}

func TestWritePersistsContent(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{{Content: []byte("BT (before) Tj ET")}},
	})

	replacement := []byte("BT (after) Tj ET")
	require.NoError(t, d.SetPageContent(0, replacement))

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, d.WriteFile(path))

	reopened, err := Open(path)
	require.NoError(t, err)
	got, err := reopened.PageContent(0)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestImages(t *testing.T) {
	content := append(pdftest.DrawImage(0), pdftest.DrawImage(1)...)
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{
			{
				Content: content,
				Images: []pdftest.Image{
					{Width: 2360, Height: 1640},
					{Width: 10, Height: 10},
				},
			},
			{Content: []byte("BT (no images) Tj ET")},
		},
	})

	images, err := d.Images(0)
	require.NoError(t, err)
	require.Len(t, images, 2)

	// Slice order follows object numbers, which follow declaration order.
	assert.Equal(t, 2360, images[0].Width)
	assert.Equal(t, 1640, images[0].Height)
	assert.Equal(t, 10, images[1].Width)
	assert.Less(t, images[0].ObjNr, images[1].ObjNr)

	empty, err := d.Images(1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteImage(t *testing.T) {
	content := append(pdftest.DrawImage(0), pdftest.DrawImage(1)...)
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{
			{
				Content: content,
				Images: []pdftest.Image{
					{Width: 10, Height: 10},
					{Width: 2360, Height: 1640},
				},
			},
		},
	})

	images, err := d.Images(0)
	require.NoError(t, err)
	require.Len(t, images, 2)
	target := images[1]
	require.Equal(t, 2360, target.Width)

	require.NoError(t, d.DeleteImage(0, target.ObjNr))

	remaining, err := d.Images(0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 10, remaining[0].Width)

	// The draw operator for the removed image is gone, the other one stays.
	got, err := d.PageContent(0)
	require.NoError(t, err)
	assert.NotContains(t, string(got), "/Im1 Do")
	assert.Contains(t, string(got), "/Im0 Do")

	// Deleting it again fails: the object is gone.
	assert.Error(t, d.DeleteImage(0, target.ObjNr))
}

func TestDeleteImageSurvivesWrite(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{
			{
				Content: pdftest.DrawImage(0),
				Images:  []pdftest.Image{{Width: 1640, Height: 2360}},
			},
		},
	})

	images, err := d.Images(0)
	require.NoError(t, err)
	require.Len(t, images, 1)
	require.NoError(t, d.DeleteImage(0, images[0].ObjNr))

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, d.WriteFile(path))

	reopened, err := Open(path)
	require.NoError(t, err)
	remaining, err := reopened.Images(0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDeleteImageErrors(t *testing.T) {
	d := openFixture(t, pdftest.Doc{
		Pages: []pdftest.Page{
			{Content: []byte("BT (plain) Tj ET")},
			{
				Content: pdftest.DrawImage(0),
				Images:  []pdftest.Image{{Width: 100, Height: 100}},
			},
		},
	})

	// Unknown object number.
	err := d.DeleteImage(0, 9999)
	assert.ErrorContains(t, err, "not found")

	// Known image, wrong page.
	images, err2 := d.Images(1)
	require.NoError(t, err2)
	require.Len(t, images, 1)
	err = d.DeleteImage(0, images[0].ObjNr)
	assert.Error(t, err)

	// The image is still intact on its own page.
	still, err2 := d.Images(1)
	require.NoError(t, err2)
	assert.Len(t, still, 1)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestFixtureIsStableOnDisk(t *testing.T) {
	// The builder output must be a file pdfcpu can read back after a
	// write cycle, otherwise every downstream test is on sand.
	data := pdftest.Build(pdftest.Doc{
		Producer: "Version 2.1",
		Pages: []pdftest.Page{
			{Content: []byte("BT (p0) Tj ET")},
			{Content: pdftest.DrawImage(0), Images: []pdftest.Image{{Width: 50, Height: 50}}},
		},
	})
	path := filepath.Join(t.TempDir(), "fixture.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	d, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.PageCount())
	assert.Equal(t, "Version 2.1", d.Producer())
}
