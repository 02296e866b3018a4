// Package weft is a server-side stateful UI component framework. A page
// is a tree of components whose state lives in a per-transaction store;
// the browser holds no application state and every interaction is an
// event round-trip to the server, answered with a full document or with
// update fragments for the components that changed.
//
// Component types are declared as Specs and registered once:
//
//	var Counter = &weft.Spec{
//	    Name:  "counter",
//	    State: []string{"count"},
//	    Handlers: map[string]weft.HandlerFunc{
//	        "increment": func(c *weft.Component, _ weft.Values) error {
//	            c.SetField("count", c.Field("count").(int)+1)
//	            c.Redraw()
//	            return nil
//	        },
//	    },
//	}
//
// Trees are declared as blueprints and driven by a Page:
//
//	page := weft.NewPage(Dashboard.Declare(nil), registry)
//	resp, err := page.Handle(ctx, &weft.Request{TID: tid, Events: queue})
//
// Containers reconcile generated children against a data source through
// UpdateChildren; see the Spec fields DefaultChild, DataInterface and
// GetData.
package weft
