package weft

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// PageFunc constructs a fresh Page for one request. Page values hold
// per-activation state, so the transport never shares them between
// requests.
type PageFunc func() *Page

// Handler serves weft pages over HTTP. GET delivers the full document,
// POST takes a JSON event batch and answers with update fragments.
type Handler struct {
	router *mux.Router
	log    zerolog.Logger
}

// NewHandler creates an empty handler.
func NewHandler(log zerolog.Logger) *Handler {
	h := &Handler{router: mux.NewRouter(), log: log}
	h.router.Use(h.logRequests)
	return h
}

// Router exposes the underlying router for mounting extra routes.
func (h *Handler) Router() *mux.Router { return h.router }

// HandlePage mounts a page at path.
func (h *Handler) HandlePage(path string, fn PageFunc) {
	h.router.HandleFunc(path, h.fullPage(fn)).Methods(http.MethodGet)
	h.router.HandleFunc(path, h.partialPage(fn)).Methods(http.MethodPost)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// eventBatch is the POST body: the transaction to resume plus the
// queued events.
type eventBatch struct {
	TID   string            `json:"tid"`
	Sync  bool              `json:"sync,omitempty"`
	Queue []EventDescriptor `json:"q"`
}

// partialReply is the POST response body.
type partialReply struct {
	TID       string     `json:"tid"`
	Fragments []Fragment `json:"fragments"`
}

func (h *Handler) fullPage(fn PageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := fn()
		resp, err := page.Handle(r.Context(), &Request{
			TID:       r.URL.Query().Get("tid"),
			Principal: r.Context().Value(principalKey{}),
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Weft-Tid", resp.TID)
		w.Write([]byte(resp.HTML))
	}
}

func (h *Handler) partialPage(fn PageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var batch eventBatch
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			http.Error(w, "malformed event batch", http.StatusBadRequest)
			return
		}
		page := fn()
		resp, err := page.Handle(r.Context(), &Request{
			TID:         batch.TID,
			Partial:     true,
			RequireSync: batch.Sync,
			Principal:   r.Context().Value(principalKey{}),
			Events:      batch.Queue,
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(partialReply{TID: resp.TID, Fragments: resp.Fragments})
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if IsMissingHandler(err) {
		status = http.StatusUnprocessableEntity
	}
	h.log.Error().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	http.Error(w, http.StatusText(status), status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// principalKey carries the authenticated caller through the request
// context. Authentication middleware sets it with WithPrincipal.
type principalKey struct{}

// WithPrincipal returns a request whose context carries the principal
// handed to page permission checks.
func WithPrincipal(r *http.Request, principal any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, principal))
}
