package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"ordermgr/internal/model"
)

//go:embed templates/*.html
var files embed.FS

const layoutFile = "templates/layout.html"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// Page is the data every template receives.
type Page struct {
	Title     string
	User      *model.User
	Flashes   []Flash
	CSRFToken string
	Data      interface{}
}

// Renderer implements echo.Renderer over the embedded templates. Each page is parsed
// together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every embedded page.
func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		if name == layoutFile {
			continue
		}
		t, err := template.New(path.Base(name)).Funcs(funcs()).ParseFS(files, layoutFile, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[path.Base(name)] = t
	}
	return r, nil
}

// MustNew is New for program start-up.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"year": func() int { return time.Now().Year() },
		"yen": func(d decimal.Decimal) string {
			return formatThousands(d.StringFixed(0))
		},
		"date": func(t time.Time) string { return t.Format(model.DateLayout) },
		"first": func(errs map[string][]string, field string) string {
			if msgs := errs[field]; len(msgs) > 0 {
				return msgs[0]
			}
			return ""
		},
	}
}

func formatThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, ch := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
