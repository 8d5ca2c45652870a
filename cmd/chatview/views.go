package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/odvcencio/chatview/pkg/engine"
	"github.com/odvcencio/chatview/pkg/view"
)

// The demo is a small library bot: a book list with a cover photo that a
// reader view can be stacked on. It exercises media edits, text input
// routing, stack handoff and the close-result path.

const (
	bookListKind   = "book_list"
	bookReaderKind = "book_reader"
)

type book struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cover string `json:"cover"`
	Pages int    `json:"pages"`
}

var catalog = []book{
	{ID: "hadji-murat", Title: "Hadji Murat", Cover: "https://covers.example.org/hadji-murat.jpg", Pages: 96},
	{ID: "dead-souls", Title: "Dead Souls", Cover: "https://covers.example.org/dead-souls.jpg", Pages: 432},
	{ID: "oblomov", Title: "Oblomov", Cover: "https://covers.example.org/oblomov.jpg", Pages: 576},
}

// readResult is what the reader hands back to the list when it closes.
type readResult struct {
	BookID string
	Page   int
}

type bookListView struct {
	Index    int    `json:"index"`
	LastRead string `json:"last_read,omitempty"`
}

func (v *bookListView) Kind() string { return bookListKind }

func (v *bookListView) Render() (*view.Blueprint, error) {
	var b strings.Builder
	b.WriteString("Library\n\n")
	for i, bk := range catalog {
		marker := "  "
		if i == v.Index {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s\n", marker, bk.Title)
	}
	if v.LastRead != "" {
		fmt.Fprintf(&b, "\nLast read: %s", v.LastRead)
	}
	b.WriteString("\n\nType part of a title to select it.")

	kb := (&view.Keyboard{}).
		Row(view.Button{Text: "^", Action: "up"}).
		Row(view.Button{Text: "Read", Action: "read"}).
		Row(view.Button{Text: "v", Action: "down"})

	return &view.Blueprint{
		Text:     b.String(),
		Media:    view.Photo{File: view.Remote(catalog[v.Index].Cover)},
		Keyboard: kb,
	}, nil
}

func (v *bookListView) MarshalState() ([]byte, error) { return json.Marshal(v) }

type bookReaderView struct {
	BookID string `json:"book_id"`
	Page   int    `json:"page"`
}

func (v *bookReaderView) Kind() string { return bookReaderKind }

func (v *bookReaderView) book() book {
	for _, bk := range catalog {
		if bk.ID == v.BookID {
			return bk
		}
	}
	return book{ID: v.BookID, Title: v.BookID, Pages: 1}
}

func (v *bookReaderView) Render() (*view.Blueprint, error) {
	bk := v.book()
	text := fmt.Sprintf("%s\n\nPage %d of %d\n\nType a page number to jump.", bk.Title, v.Page+1, bk.Pages)

	kb := (&view.Keyboard{}).Row(
		view.Button{Text: "<", Action: "prev"},
		view.Button{Text: "Close", Action: "close"},
		view.Button{Text: ">", Action: "next"},
	)
	return &view.Blueprint{Text: text, Keyboard: kb}, nil
}

func (v *bookReaderView) MarshalState() ([]byte, error) { return json.Marshal(v) }

func viewFactory[T any, PT interface {
	*T
	view.View
}]() view.Factory {
	return func(state []byte) (view.View, error) {
		v := PT(new(T))
		if len(state) > 0 {
			if err := json.Unmarshal(state, v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

func registerViews(eng *engine.Engine) error {
	list := engine.NewHandlers().
		Button("up", func(c *engine.Call, _ string) error {
			v := c.View().(*bookListView)
			if v.Index > 0 {
				v.Index--
			}
			return nil
		}).
		Button("down", func(c *engine.Call, _ string) error {
			v := c.View().(*bookListView)
			if v.Index < len(catalog)-1 {
				v.Index++
			}
			return nil
		}).
		Button("read", func(c *engine.Call, _ string) error {
			v := c.View().(*bookListView)
			_, err := c.Send(&bookReaderView{BookID: catalog[v.Index].ID}, engine.SendOptions{Child: true})
			return err
		}).
		Text(nil, func(c *engine.Call, text string) error {
			v := c.View().(*bookListView)
			needle := strings.ToLower(strings.TrimSpace(text))
			for i, bk := range catalog {
				if strings.HasPrefix(strings.ToLower(bk.Title), needle) {
					v.Index = i
					c.Notice(bk.Title)
					break
				}
			}
			return nil
		}).
		Returned(func(result any) bool { _, ok := result.(readResult); return ok },
			func(c *engine.Call, result any) error {
				r := result.(readResult)
				v := c.View().(*bookListView)
				for _, bk := range catalog {
					if bk.ID == r.BookID {
						v.LastRead = fmt.Sprintf("%s, page %d", bk.Title, r.Page+1)
					}
				}
				return nil
			})
	if err := eng.RegisterKind(bookListKind, viewFactory[bookListView](), list); err != nil {
		return err
	}

	reader := engine.NewHandlers().
		Button("prev", func(c *engine.Call, _ string) error {
			v := c.View().(*bookReaderView)
			if v.Page > 0 {
				v.Page--
			}
			return nil
		}).
		Button("next", func(c *engine.Call, _ string) error {
			v := c.View().(*bookReaderView)
			if v.Page < v.book().Pages-1 {
				v.Page++
			}
			return nil
		}).
		Button("close", func(c *engine.Call, _ string) error {
			v := c.View().(*bookReaderView)
			return c.Close(readResult{BookID: v.BookID, Page: v.Page})
		}).
		Text(func(text string) bool {
			_, err := strconv.Atoi(strings.TrimSpace(text))
			return err == nil
		}, func(c *engine.Call, text string) error {
			v := c.View().(*bookReaderView)
			page, _ := strconv.Atoi(strings.TrimSpace(text))
			if page < 1 || page > v.book().Pages {
				c.Notice("no such page")
				return nil
			}
			v.Page = page - 1
			return nil
		})
	return eng.RegisterKind(bookReaderKind, viewFactory[bookReaderView](), reader)
}
