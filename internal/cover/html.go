package cover

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var htmlTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"pct": func(r Ratio) string { return strconv.FormatFloat(r.Pct(), 'f', 2, 64) },
	"level": func(r Ratio) string {
		switch p := r.Pct(); {
		case p >= 80:
			return "high"
		case p >= 50:
			return "medium"
		default:
			return "low"
		}
	},
}).ParseFS(templateFS, "templates/*.tmpl"))

// HTMLFormatter renders index.html plus one page per covered file.
type HTMLFormatter struct {
	Title string
}

func NewHTMLFormatter() *HTMLFormatter {
	return &HTMLFormatter{Title: "Code coverage report"}
}

func (h *HTMLFormatter) Name() string { return "html" }

type indexRow struct {
	Path    string
	Link    string
	Summary Summary
}

type indexPage struct {
	Title   string
	Summary Summary
	Rows    []indexRow
}

type sourceLine struct {
	No    int
	Text  string
	Class string
	Hits  string
}

type filePage struct {
	Title     string
	Path      string
	IndexLink string
	Summary   Summary
	Lines     []sourceLine
	Functions []Function
}

func (h *HTMLFormatter) Format(d *Data, sources map[string][]byte) ([]ReportFile, error) {
	idx := indexPage{Title: h.Title, Summary: d.Summary()}
	files := make([]ReportFile, 0, len(d.Files)+1)

	for _, f := range d.Files {
		src, ok := sources[f.Path]
		if !ok {
			return nil, fmt.Errorf("html report: no source for %s", f.Path)
		}
		page := filePage{
			Title:     h.Title,
			Path:      f.Path,
			IndexLink: strings.Repeat("../", strings.Count(f.Path, "/")) + "index.html",
			Summary:   f.Summary(),
			Lines:     annotate(f, src),
			Functions: f.Functions,
		}
		var buf bytes.Buffer
		if err := htmlTemplates.ExecuteTemplate(&buf, "file.html.tmpl", page); err != nil {
			return nil, fmt.Errorf("html report: %s: %w", f.Path, err)
		}
		link := f.Path + ".html"
		files = append(files, ReportFile{Path: link, Content: buf.Bytes()})
		idx.Rows = append(idx.Rows, indexRow{Path: f.Path, Link: link, Summary: page.Summary})
	}

	var buf bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&buf, "index.html.tmpl", idx); err != nil {
		return nil, fmt.Errorf("html report: index: %w", err)
	}
	return append([]ReportFile{{Path: "index.html", Content: buf.Bytes()}}, files...), nil
}

func annotate(f *FileCoverage, src []byte) []sourceLine {
	info := f.Lines()
	raw := strings.Split(strings.ReplaceAll(string(src), "\r\n", "\n"), "\n")
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}
	out := make([]sourceLine, len(raw))
	for i, text := range raw {
		l := sourceLine{No: i + 1, Text: text}
		if li, ok := info[i+1]; ok {
			l.Hits = strconv.Itoa(li.Hits) + "x"
			switch li.Status {
			case LineCovered:
				l.Class = "hit"
			case LinePartial:
				l.Class = "partial"
			case LineMissed:
				l.Class = "miss"
			}
		}
		out[i] = l
	}
	return out
}
