package weft

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"

	"github.com/weftkit/weft/lib/codec"
	"github.com/weftkit/weft/lib/txstore"
)

// PermissionFunc decides whether the request principal may see a
// component. A nil PermissionFunc grants everything.
type PermissionFunc func(principal any, c *Component) bool

// PageHandlerFunc handles an event addressed to the page itself rather
// than to a component.
type PageHandlerFunc func(p *Page, params Values) error

// Event descriptor types carried by the transport.
const (
	EventComponent = "ce"
	EventPage      = "pe"
)

// EventDescriptor is one queued event as received from the client.
type EventDescriptor struct {
	Type   string `json:"t"`
	CID    string `json:"cid,omitempty"`
	Name   string `json:"e"`
	Params Values `json:"p,omitempty"`
}

// Request carries everything a page activation needs from the
// transport: the transaction to resume, the queued events and the
// delivery mode.
type Request struct {
	// TID resumes an existing transaction; empty starts a new one.
	TID string

	// Partial requests fragment output for redraw-flagged components
	// instead of a full page render.
	Partial bool

	// RequireSync rejects listeners that accept the event for
	// asynchronous processing.
	RequireSync bool

	// Principal is the authenticated caller, handed to the permission
	// check unmodified.
	Principal any

	// Events is the ordered event queue for this request.
	Events []EventDescriptor
}

// lifecycle phases, in strict request order. Structural operations
// check the current phase to run catch-up initialization for
// components created after their phase barrier passed.
type phase int

const (
	phaseDormant phase = iota
	phaseInit
	phaseSetup
	phaseEvents
	phaseAfter
	phaseRender
	phaseFinalize
)

// Page orchestrates one component tree across requests. A Page value is
// bound to a single transaction activation at a time; concurrent
// requests for the same transaction need separate Page instances.
//
//	page := weft.NewPage(Dashboard.Declare(nil), registry,
//	    weft.WithTxStore(txs),
//	    weft.WithLogger(log),
//	)
//	resp, err := page.Handle(ctx, &weft.Request{})
type Page struct {
	Title string

	root     *Def
	registry *Registry

	store      *Store
	components map[string]*Component

	ids        IDGen
	log        zerolog.Logger
	resolver   TemplateResolver
	permission PermissionFunc
	handlers   map[string]PageHandlerFunc
	tx         txstore.Store

	principal any
	req       *Request
	response  *Response
	phase     phase
	tid       string
}

// PageOption configures a Page at construction.
type PageOption func(*Page)

// WithTitle sets the document title used by the full page render.
func WithTitle(title string) PageOption {
	return func(p *Page) { p.Title = title }
}

// WithIDGen replaces the default UUID id generator.
func WithIDGen(g IDGen) PageOption {
	return func(p *Page) { p.ids = g }
}

// WithLogger sets the page logger.
func WithLogger(log zerolog.Logger) PageOption {
	return func(p *Page) { p.log = log }
}

// WithResolver installs a theme template resolver.
func WithResolver(r TemplateResolver) PageOption {
	return func(p *Page) { p.resolver = r }
}

// WithPermission installs the component visibility permission check.
func WithPermission(fn PermissionFunc) PageOption {
	return func(p *Page) { p.permission = fn }
}

// WithTxStore persists transaction snapshots between requests. Without
// one, every request starts a fresh transaction.
func WithTxStore(s txstore.Store) PageOption {
	return func(p *Page) { p.tx = s }
}

// WithPageHandler registers a handler for page-level events.
func WithPageHandler(name string, fn PageHandlerFunc) PageOption {
	return func(p *Page) { p.handlers[name] = fn }
}

// NewPage creates a page with root as the component tree's root
// blueprint. Specs reachable from root must be registered in reg for
// rehydration to resolve them.
func NewPage(root *Def, reg *Registry, opts ...PageOption) *Page {
	p := &Page{
		Title:    "weft",
		root:     root,
		registry: reg,
		ids:      UUIDGen{},
		log:      zerolog.Nop(),
		handlers: make(map[string]PageHandlerFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TID returns the transaction id of the current or last activation.
func (p *Page) TID() string { return p.tid }

// Store returns the live state store of the current activation.
func (p *Page) Store() *Store { return p.store }

// Principal returns the request principal.
func (p *Page) Principal() any { return p.principal }

// Log returns the page logger.
func (p *Page) Log() zerolog.Logger { return p.log }

// Root returns the live root component of the current activation.
func (p *Page) Root() (*Component, error) {
	return p.Component(p.store.RootCID())
}

// Component returns the live component for cid, materializing it from
// its stored record on first access. Unknown ids are an error.
func (p *Page) Component(cid string) (*Component, error) {
	return p.materialize(cid, nil)
}

// materialize creates (or returns) the live object for a stored record.
// When spec is nil the record's class descriptor is resolved through
// the registry, re-deriving parameterized variants.
func (p *Page) materialize(cid string, spec *Spec) (*Component, error) {
	if c, ok := p.components[cid]; ok {
		return c, nil
	}
	rec := p.store.Get(cid)
	if rec == nil {
		return nil, fmt.Errorf("weft: no component %q in transaction %q", cid, p.tid)
	}
	if spec == nil {
		var err error
		spec, err = p.registry.Resolve(rec.Class)
		if err != nil {
			return nil, err
		}
	}
	c := &Component{
		page:       p,
		cid:        cid,
		spec:       spec,
		config:     spec.Config.Merged(rec.Config),
		stateAttrs: spec.stateAttrs(),
	}
	p.components[cid] = c
	return c, nil
}

// forget drops the live object for cid; its record may live on (for
// hibernated components) or be gone (for deleted ones).
func (p *Page) forget(cid string) {
	delete(p.components, cid)
}

// Handle runs one full request against the page: restore or create the
// transaction, drive every component through the lifecycle phases in
// strict order, render, and persist the resulting state. Any error
// aborts before persistence, leaving the stored transaction untouched.
func (p *Page) Handle(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	p.req = req
	p.principal = req.Principal
	p.response = NewResponse(req.Partial)
	p.components = make(map[string]*Component)
	p.phase = phaseDormant

	if err := p.restore(ctx, req.TID); err != nil {
		return nil, err
	}
	if err := p.run(ctx); err != nil {
		p.log.Error().Err(err).Str("tid", p.tid).Msg("request aborted")
		return nil, err
	}
	if err := p.persist(ctx); err != nil {
		return nil, err
	}

	p.response.TID = p.tid
	p.log.Debug().
		Str("tid", p.tid).
		Bool("partial", req.Partial).
		Int("events", len(req.Events)).
		Int("components", p.store.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("request handled")
	return p.response, nil
}

// restore loads the transaction snapshot for tid, or starts a fresh
// transaction with only the root record when tid is empty or unknown.
func (p *Page) restore(ctx context.Context, tid string) error {
	p.store = NewStore()
	p.tid = tid

	if tid != "" && p.tx != nil {
		raw, err := p.tx.Load(ctx, tid)
		if err != nil {
			return fmt.Errorf("weft: load transaction %q: %w", tid, err)
		}
		if raw != nil {
			var snap StoreSnapshot
			if err := codec.Decode(raw, &snap); err != nil {
				return fmt.Errorf("weft: decode transaction %q: %w", tid, err)
			}
			p.store = RestoreStore(&snap)
			return nil
		}
	}

	p.tid = p.ids.NewID()
	spec := p.root.effectiveSpec()
	cid := p.root.cid
	if cid == "" {
		cid = "root"
	}
	rec := &Record{
		CID:    cid,
		Class:  spec.classState(),
		Config: p.root.config.Clone(),
		Slot:   p.root.slot,
	}
	if err := p.store.Set(rec, -1); err != nil {
		return err
	}
	_, err := p.materialize(cid, spec)
	return err
}

// persist writes the snapshot of the finished activation back to the
// transaction store.
func (p *Page) persist(ctx context.Context) error {
	if p.tx == nil {
		return nil
	}
	raw, err := codec.Encode(p.store.Snapshot())
	if err != nil {
		return err
	}
	if err := p.tx.Save(ctx, p.tid, raw); err != nil {
		return fmt.Errorf("weft: save transaction %q: %w", p.tid, err)
	}
	return nil
}

// run drives the phase barriers. Each barrier completes for the entire
// tree before the next one starts; components created mid-request are
// caught up by the structural operations themselves. Finalize runs even
// when an earlier phase fails; the failure still aborts the request.
func (p *Page) run(ctx context.Context) (err error) {
	defer func() {
		p.phase = phaseFinalize
		ferr := p.eachOrdered((*Component).finalize)
		if err == nil {
			err = ferr
		}
	}()

	p.phase = phaseInit
	if err := p.eachOrdered(func(c *Component) error {
		rec := c.record()
		if rec == nil || rec.Initialized {
			return nil
		}
		rec.Initialized = true
		return c.initTransaction()
	}); err != nil {
		return err
	}

	p.phase = phaseSetup
	if err := p.eachOrdered((*Component).setupComponent); err != nil {
		return err
	}

	p.phase = phaseEvents
	for _, ev := range p.req.Events {
		if err := p.dispatch(ev); err != nil {
			return err
		}
	}

	p.phase = phaseAfter
	if err := p.eachOrdered((*Component).afterEventHandling); err != nil {
		return err
	}

	p.phase = phaseRender
	return p.render(ctx)
}

// eachOrdered applies fn to every live component in structural
// parent-before-child order. The order is snapshotted first so fn may
// add or delete components; additions are not revisited, deletions are
// skipped.
func (p *Page) eachOrdered(fn func(c *Component) error) error {
	for _, cid := range p.store.OrderedCIDs() {
		if !p.store.Has(cid) {
			continue
		}
		c, err := p.Component(cid)
		if err != nil {
			return err
		}
		if c.deleted {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

// dispatch routes one queued event.
func (p *Page) dispatch(ev EventDescriptor) error {
	switch ev.Type {
	case EventPage:
		handler, ok := p.handlers[ev.Name]
		if !ok {
			return &MissingHandlerError{CID: "page", Event: ev.Name}
		}
		return handler(p, ev.Params)
	default:
		c, err := p.Component(ev.CID)
		if err != nil {
			return err
		}
		return c.HandleEvent(ev.Name, ev.Params)
	}
}

// render produces the response body: the full document on a full
// request, or one fragment per top-most redraw-flagged component on a
// partial request. Ancestor fragments cover their descendants, so a
// flagged child inside a flagged container emits nothing of its own.
func (p *Page) render(ctx context.Context) error {
	root, err := p.Root()
	if err != nil {
		return err
	}
	if !p.req.Partial {
		markup, err := root.Render(ctx)
		if err != nil {
			return err
		}
		p.response.HTML = fmt.Sprintf(
			"<!DOCTYPE html>\n<html>\n<head><title>%s</title></head>\n<body>\n%s\n</body>\n</html>\n",
			templ.EscapeString(p.Title), markup)
		return nil
	}
	return p.collectRedraws(ctx, root, false)
}

func (p *Page) collectRedraws(ctx context.Context, c *Component, covered bool) error {
	if c.deleted {
		return nil
	}
	if !covered && c.RedrawRequested() {
		if c.IsVisible(true) {
			markup, err := c.Render(ctx)
			if err != nil {
				return err
			}
			p.response.Replace(c.cid, markup)
		} else {
			p.response.Hide(c.cid)
		}
		covered = true
	}
	for _, child := range c.Children() {
		if err := p.collectRedraws(ctx, child, covered); err != nil {
			return err
		}
	}
	return nil
}
