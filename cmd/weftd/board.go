package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/a-h/templ"

	"github.com/weftkit/weft"
)

// tasks is the demo data source behind the smart container. It stands
// in for whatever database a real application would reconcile against.
type tasks struct {
	mu    sync.Mutex
	next  int
	items map[int]taskRow
}

type taskRow struct {
	id    int
	title string
	done  bool
}

func newTasks() *tasks {
	t := &tasks{items: make(map[int]taskRow)}
	t.add("write the readme")
	t.add("wire up the board")
	return t
}

func (t *tasks) add(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.items[t.next] = taskRow{id: t.next, title: title}
}

func (t *tasks) toggle(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row, ok := t.items[id]; ok {
		row.done = !row.done
		t.items[id] = row
	}
}

func (t *tasks) remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.items, id)
}

func (t *tasks) window(offset, limit int) []weft.Values {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int, 0, len(t.items))
	for id := range t.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]weft.Values, 0, limit)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		row := t.items[ids[i]]
		out = append(out, weft.Values{"id": row.id, "title": row.title, "done": row.done})
	}
	return out
}

// newBoard declares the demo component tree and registers its specs.
func newBoard(registry *weft.Registry) *weft.Def {
	source := newTasks()

	var (
		taskID    = weft.Attr[int]{Name: "id"}
		taskTitle = weft.Attr[string]{Name: "title"}
		taskDone  = weft.Attr[bool]{Name: "done"}
	)

	task := &weft.Spec{
		Name:  "task",
		State: []string{"id", "title", "done"},
		Template: func(c *weft.Component) templ.Component {
			return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
				mark := " "
				if taskDone.Get(c) {
					mark = "x"
				}
				_, err := fmt.Fprintf(w, `<li data-weft-id=%q>[%s] %s</li>`,
					c.CID(), mark, templ.EscapeString(taskTitle.Get(c)))
				return err
			})
		},
		Handlers: map[string]weft.HandlerFunc{
			"toggle": func(c *weft.Component, _ weft.Values) error {
				source.toggle(taskID.Get(c))
				c.Redraw()
				return nil
			},
		},
	}

	board := &weft.Spec{
		Name:          "task_board",
		DefaultChild:  task.Declare(nil),
		DataInterface: []string{"id", "title", "done"},
		GetData: func(offset, limit int, _ weft.Values) ([]weft.Values, error) {
			return source.window(offset, limit), nil
		},
		Handlers: map[string]weft.HandlerFunc{
			"add": func(c *weft.Component, params weft.Values) error {
				if title := params.GetString("title"); title != "" {
					source.add(title)
					c.Redraw()
				}
				return nil
			},
			"remove": func(c *weft.Component, params weft.Values) error {
				source.remove(params.GetInt("id"))
				c.Redraw()
				return nil
			},
		},
	}

	registry.Add(task, board)
	return board.Declare(nil)
}
