// Package view renders the HTML pages through echo's Renderer.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"
	"time"

	"peercart/internal/domain/pricing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var files embed.FS

// layoutを使わない断片（support?modal=true など）
const fragmentPrefix = "fragment_"

// 全ページ共通のデータ
type Page struct {
	Title     string
	Path      string
	UserID    int64
	UserName  string
	IsSeller  bool
	CartCount int64
	Unread    int64
	Flash     string
	FlashType string
	// フォームの用途ごとのCSRFトークン
	CSRF map[string]string
	Data interface{}
}

func (p Page) LoggedIn() bool {
	return p.UserID > 0
}

type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return pricing.Money(d)
	},
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006")
	},
	"datetime": func(t time.Time) string {
		return t.Format("02 Jan 2006 15:04")
	},
	"title": func(s string) string {
		s = strings.ReplaceAll(s, "_", " ")
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"query": func(kv ...interface{}) string {
		q := url.Values{}
		for i := 0; i+1 < len(kv); i += 2 {
			v := fmt.Sprint(kv[i+1])
			if v != "" && v != "0" {
				q.Set(fmt.Sprint(kv[i]), v)
			}
		}
		return q.Encode()
	},
	"dict": func(kv ...interface{}) map[string]interface{} {
		m := make(map[string]interface{}, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[fmt.Sprint(kv[i])] = kv[i+1]
		}
		return m
	},
	"add": func(a, b int) int { return a + b },
	"pageList": func(n int) []int {
		out := make([]int, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, i)
		}
		return out
	},
}

// Newは埋め込みテンプレートを全部パースする。
// ページはlayout.htmlと組み合わせ、fragment_*.htmlは単体で使う。
func New() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html")
	if err != nil {
		return nil, err
	}

	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}

		var t *template.Template
		if strings.HasPrefix(base, fragmentPrefix) {
			t, err = template.New(base).Funcs(funcs).ParseFS(files, name)
		} else {
			t, err = template.Must(layout.Clone()).ParseFS(files, name)
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Renderはecho.Renderer
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	if strings.HasPrefix(name, fragmentPrefix) {
		return t.ExecuteTemplate(w, name+".html", data)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}
