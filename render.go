package weft

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

type renderResult struct {
	main string
}

// Render produces the component's markup, memoized per request. The
// cache is cleared only by ResetRenderCache.
//
// Invisible components render as an empty placeholder tagged with their
// id, so they can be made visible and populated later without a full
// page reload.
func (c *Component) Render(ctx context.Context) (string, error) {
	if c.renderCache != nil {
		return c.renderCache.main, nil
	}

	if !c.IsVisible(false) {
		markup := fmt.Sprintf(`<div data-weft-id="%s"></div>`, templ.EscapeString(c.cid))
		c.renderCache = &renderResult{main: markup}
		return markup, nil
	}

	c.isRendered = true

	tpl := c.spec.Template
	if tpl == nil {
		if c.spec.IsContainer() {
			tpl = DefaultContainerTemplate
		} else {
			tpl = defaultLeafTemplate
		}
	}

	var buf bytes.Buffer
	if err := tpl(c).Render(ctx, &buf); err != nil {
		return "", err
	}
	c.renderCache = &renderResult{main: buf.String()}
	c.page.response.Init(c.cid, c.spec.Name)
	return c.renderCache.main, nil
}

// IsRendered reports whether Render produced real output this request.
func (c *Component) IsRendered() bool { return c.isRendered }

// ResetRenderCache drops the memoized markup, optionally for the whole
// subtree.
func (c *Component) ResetRenderCache(recursive bool) {
	c.renderCache = nil
	if recursive {
		for _, child := range c.Children() {
			child.ResetRenderCache(recursive)
		}
	}
}

// ChildMarkup renders all visible children in structural order, each
// wrapped by the container's row part. Custom container templates call
// this to place the child area within their own layout.
func (c *Component) ChildMarkup() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, child := range c.Children() {
			markup, err := child.Render(ctx)
			if err != nil {
				return err
			}
			row := c.RenderPart(PartRow, templ.Raw(markup))
			if err := row.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

// DefaultContainerTemplate composes the themed part chain: before, then
// the container part wrapping the inner container around the child rows,
// then after. Containers without their own Template render through this.
func DefaultContainerTemplate(c *Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := c.RenderPart(PartBefore, nil).Render(ctx, w); err != nil {
			return err
		}
		inner := c.RenderPart(PartInnerContainer, c.ChildMarkup())
		if err := c.RenderPart(PartContainer, inner).Render(ctx, w); err != nil {
			return err
		}
		return c.RenderPart(PartAfter, nil).Render(ctx, w)
	})
}

// defaultLeafTemplate renders an id-tagged div around the value, enough
// for tests and bare leaves. Real leaf types bring their own Template.
func defaultLeafTemplate(c *Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div data-weft-id="%s">`, templ.EscapeString(c.cid)); err != nil {
			return err
		}
		if v := c.Value(); v != nil {
			if _, err := io.WriteString(w, templ.EscapeString(fmt.Sprintf("%v", v))); err != nil {
				return err
			}
		}
		if msg := c.ValidationError(); msg != "" {
			if _, err := fmt.Fprintf(w, `<span class="validation-error">%s</span>`, templ.EscapeString(msg)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}
