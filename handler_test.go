package weft

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftkit/weft/lib/txstore"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	leaf := &Spec{
		Name:      "leaf",
		Container: true,
		State:     []string{"n"},
		Handlers: map[string]HandlerFunc{
			"bump": func(c *Component, _ Values) error {
				c.SetField("n", Attr[int]{Name: "n"}.Get(c)+1)
				c.Redraw()
				return nil
			},
		},
	}
	reg := NewRegistry()
	reg.Add(leaf)
	txs := txstore.NewMemory()

	h := NewHandler(zerolog.Nop())
	h.HandlePage("/board", func() *Page {
		return NewPage(leaf.Declare(nil), reg, WithTxStore(txs), WithTitle("board"))
	})
	return h
}

func TestHandlerFullPage(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.NotEmpty(t, rec.Header().Get("X-Weft-Tid"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "<!DOCTYPE html>"))
	assert.Contains(t, rec.Body.String(), `data-weft-id="root"`)
}

func TestHandlerEventRoundTrip(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))
	tid := rec.Header().Get("X-Weft-Tid")
	require.NotEmpty(t, tid)

	body, err := json.Marshal(eventBatch{
		TID:   tid,
		Queue: []EventDescriptor{ComponentEvent("root", "bump", nil)},
	})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/board", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	var reply partialReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, tid, reply.TID)

	found := false
	for _, f := range reply.Fragments {
		if f.Kind == FragmentReplace && f.CID == "root" {
			found = true
		}
	}
	assert.True(t, found, "no replace fragment in %+v", reply.Fragments)
}

func TestHandlerMalformedBatch(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/board", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUnhandledEvent(t *testing.T) {
	h := newTestHandler(t)
	body, _ := json.Marshal(eventBatch{
		Queue: []EventDescriptor{ComponentEvent("root", "ghost", nil)},
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/board", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
