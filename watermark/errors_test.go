package watermark

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemovalErrorAggregation(t *testing.T) {
	rerr := newRemovalError([]*PageError{
		{Page: 7, Err: errors.New("bad stream")},
		{Page: 2, Err: errors.New("bad stream")},
		{Page: 4, Err: errors.New("bad stream")},
	})

	assert.Equal(t, []int{2, 4, 7}, rerr.Pages)
	assert.Contains(t, rerr.Error(), "3 page(s)")
	assert.Contains(t, rerr.Error(), "[2 4 7]")

	var pe *PageError
	require.ErrorAs(t, rerr, &pe)
	assert.Equal(t, 2, pe.Page)
}

func TestPageErrorMessage(t *testing.T) {
	cause := errors.New("short stream")
	pe := &PageError{Page: 5, Err: cause}

	assert.Equal(t, "page 5: short stream", pe.Error())
	assert.ErrorIs(t, pe, cause)
}

func TestTimeoutErrorMessage(t *testing.T) {
	te := &TimeoutError{Budget: 3 * time.Second, Err: context.DeadlineExceeded}
	assert.Contains(t, te.Error(), "3s")
	assert.ErrorIs(t, te, context.DeadlineExceeded)

	assert.Equal(t, "removal timed out", (&TimeoutError{}).Error())
}

func TestParseErrorMessage(t *testing.T) {
	cause := errors.New("bad xref")
	pe := &ParseError{Op: "open document", Err: cause}

	assert.Equal(t, "parse: open document: bad xref", pe.Error())
	assert.ErrorIs(t, pe, cause)
}

func TestIOErrorMessage(t *testing.T) {
	cause := errors.New("permission denied")

	withPath := &IOError{Op: "open", Path: "/tmp/x.pdf", Err: cause}
	assert.Equal(t, "open /tmp/x.pdf: permission denied", withPath.Error())
	assert.ErrorIs(t, withPath, cause)

	noPath := &IOError{Op: "write document", Err: cause}
	assert.Equal(t, "write document: permission denied", noPath.Error())
}
