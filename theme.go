package weft

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// PartTemplate renders one named part of a container's output. inner is
// the content the part wraps; parts that ignore it are terminal.
type PartTemplate func(c *Component, inner templ.Component) templ.Component

// TemplateResolver maps a theme-path segment and a part name to a
// template. Returning false signals "not found" and the search continues
// along the theme path.
type TemplateResolver interface {
	Lookup(path, part string) (PartTemplate, bool)
}

// The render parts containers compose from.
const (
	PartContainer      = "container"
	PartInnerContainer = "inner_container"
	PartRow            = "row"
	PartBefore         = "before"
	PartAfter          = "after"
)

// DefaultThemePath is the fallback segment consulted when no entry of a
// spec's theme path resolves a part.
const DefaultThemePath = "default"

// themeChain is a resolved template lookup for one part: zero or more
// direction-prefixed wrappers accumulated around one final plain match.
type themeChain struct {
	direction byte // '<' wraps outward, '>' feeds inward
	parts     []PartTemplate
}

// themedChain resolves the template chain for a part, cached per
// component per request. Entries of the theme path are searched in
// reverse declaration order: a plain entry that resolves stops the
// search; entries prefixed '<' or '>' set the direction and accumulate
// into the wrapper chain around the eventual plain match. When nothing
// matches, the default theme segment terminates the chain, with a
// built-in part as the last resort.
func (c *Component) themedChain(part string) themeChain {
	if c.themeCache == nil {
		c.themeCache = make(map[string]themeChain)
	} else if chain, ok := c.themeCache[part]; ok {
		return chain
	}

	resolver := c.page.resolver
	chain := themeChain{direction: '<'}
	paths := c.spec.ThemePath
	for i := len(paths) - 1; i >= 0; i-- {
		entry := paths[i]
		if len(entry) > 0 && (entry[0] == '<' || entry[0] == '>') {
			chain.direction = entry[0]
			if resolver != nil {
				if tpl, ok := resolver.Lookup(entry[1:], part); ok {
					chain.parts = append([]PartTemplate{tpl}, chain.parts...)
				}
			}
			continue
		}
		if resolver != nil {
			if tpl, ok := resolver.Lookup(entry, part); ok {
				chain.parts = append(chain.parts, tpl)
				c.themeCache[part] = chain
				return chain
			}
		}
	}
	if resolver != nil {
		if tpl, ok := resolver.Lookup(DefaultThemePath, part); ok {
			chain.parts = append(chain.parts, tpl)
			c.themeCache[part] = chain
			return chain
		}
	}
	chain.parts = append(chain.parts, builtinPart(part))
	c.themeCache[part] = chain
	return chain
}

// RenderPart applies the resolved chain for a part around inner content.
// Available to custom container templates composing their own layout.
func (c *Component) RenderPart(part string, inner templ.Component) templ.Component {
	chain := c.themedChain(part)
	parts := chain.parts
	if chain.direction == '<' {
		parts = make([]PartTemplate, len(chain.parts))
		for i, p := range chain.parts {
			parts[len(chain.parts)-1-i] = p
		}
	}
	out := inner
	for _, p := range parts {
		out = p(c, out)
	}
	return out
}

// builtinPart supplies the minimal markup when no theme provides a part.
func builtinPart(part string) PartTemplate {
	switch part {
	case PartContainer:
		return func(c *Component, inner templ.Component) templ.Component {
			return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
				if _, err := fmt.Fprintf(w, `<div data-weft-id="%s">`, templ.EscapeString(c.CID())); err != nil {
					return err
				}
				if inner != nil {
					if err := inner.Render(ctx, w); err != nil {
						return err
					}
				}
				_, err := io.WriteString(w, `</div>`)
				return err
			})
		}
	case PartBefore, PartAfter:
		return func(c *Component, inner templ.Component) templ.Component {
			return templ.NopComponent
		}
	default: // inner_container, row: pass-through
		return func(c *Component, inner templ.Component) templ.Component {
			if inner == nil {
				return templ.NopComponent
			}
			return inner
		}
	}
}

// MapResolver is an in-memory TemplateResolver, the natural fit for
// themes declared in Go code.
//
//	themes := weft.NewMapResolver()
//	themes.Register("dark", weft.PartContainer, darkContainer)
type MapResolver struct {
	parts map[string]map[string]PartTemplate
}

func NewMapResolver() *MapResolver {
	return &MapResolver{parts: make(map[string]map[string]PartTemplate)}
}

// Register binds a part template under a theme-path segment.
func (m *MapResolver) Register(path, part string, tpl PartTemplate) {
	if m.parts[path] == nil {
		m.parts[path] = make(map[string]PartTemplate)
	}
	m.parts[path][part] = tpl
}

func (m *MapResolver) Lookup(path, part string) (PartTemplate, bool) {
	tpl, ok := m.parts[path][part]
	return tpl, ok
}
