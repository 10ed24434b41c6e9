// Package anki builds and reads Anki .apkg packages: a zip archive holding a
// SQLite collection and a media manifest.
package anki

import "strings"

// modelStandard is the collection's model type for non-cloze note types.
const modelStandard = 0

const defaultCSS = `.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}
`

const (
	defaultLatexPre = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n" +
		"\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n" +
		"\\setlength{\\parindent}{0in}\n\\begin{document}\n"
	defaultLatexPost = "\\end{document}"
)

// Field is one named slot of a model.
type Field struct {
	Name string
}

// Template renders one card from a note. QFmt is the front, AFmt the back.
type Template struct {
	Name string
	QFmt string
	AFmt string
}

// Model is the schema shared by every note of a kind: its fields and the
// templates that turn a note into cards.
type Model struct {
	ID        int64
	Name      string
	Fields    []Field
	Templates []Template
	CSS       string
}

// NewModel returns a standard model with the given fields and templates.
func NewModel(id int64, name string, fields []Field, templates []Template) *Model {
	return &Model{
		ID:        id,
		Name:      name,
		Fields:    fields,
		Templates: templates,
		CSS:       defaultCSS,
	}
}

// FieldNames returns the declared field names in order.
func (m *Model) FieldNames() []string {
	names := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		names[i] = f.Name
	}
	return names
}

// requirements lists, per template, the field ordinals referenced on the
// front. Anki skips generating a card when all of them are empty.
func (m *Model) requirements() [][]any {
	req := make([][]any, 0, len(m.Templates))
	for ord, tmpl := range m.Templates {
		var used []int
		for i, f := range m.Fields {
			if strings.Contains(tmpl.QFmt, "{{"+f.Name+"}}") {
				used = append(used, i)
			}
		}
		if len(used) == 0 {
			continue
		}
		req = append(req, []any{ord, "any", used})
	}
	return req
}

type fieldJSON struct {
	Name   string   `json:"name"`
	Ord    int      `json:"ord"`
	Font   string   `json:"font"`
	Media  []string `json:"media"`
	RTL    bool     `json:"rtl"`
	Size   int      `json:"size"`
	Sticky bool     `json:"sticky"`
}

type templateJSON struct {
	Name  string `json:"name"`
	Ord   int    `json:"ord"`
	QFmt  string `json:"qfmt"`
	AFmt  string `json:"afmt"`
	BQFmt string `json:"bqfmt"`
	BAFmt string `json:"bafmt"`
	Did   *int64 `json:"did"`
}

type modelJSON struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Type      int            `json:"type"`
	Mod       int64          `json:"mod"`
	USN       int            `json:"usn"`
	SortF     int            `json:"sortf"`
	Did       int64          `json:"did"`
	Tmpls     []templateJSON `json:"tmpls"`
	Flds      []fieldJSON    `json:"flds"`
	CSS       string         `json:"css"`
	LatexPre  string         `json:"latexPre"`
	LatexPost string         `json:"latexPost"`
	LatexSVG  bool           `json:"latexsvg"`
	Req       [][]any        `json:"req"`
	Tags      []string       `json:"tags"`
	Vers      []int          `json:"vers"`
}

func (m *Model) toJSON(deckID, mod int64) modelJSON {
	mj := modelJSON{
		ID:        m.ID,
		Name:      m.Name,
		Type:      modelStandard,
		Mod:       mod,
		USN:       -1,
		Did:       deckID,
		CSS:       m.CSS,
		LatexPre:  defaultLatexPre,
		LatexPost: defaultLatexPost,
		Req:       m.requirements(),
		Tags:      []string{},
		Vers:      []int{},
	}
	for i, f := range m.Fields {
		mj.Flds = append(mj.Flds, fieldJSON{
			Name:  f.Name,
			Ord:   i,
			Font:  "Liberation Sans",
			Media: []string{},
			Size:  20,
		})
	}
	for i, t := range m.Templates {
		mj.Tmpls = append(mj.Tmpls, templateJSON{
			Name: t.Name,
			Ord:  i,
			QFmt: t.QFmt,
			AFmt: t.AFmt,
		})
	}
	return mj
}

func (mj modelJSON) toModel() Model {
	m := Model{ID: mj.ID, Name: mj.Name, CSS: mj.CSS}
	for _, f := range mj.Flds {
		m.Fields = append(m.Fields, Field{Name: f.Name})
	}
	for _, t := range mj.Tmpls {
		m.Templates = append(m.Templates, Template{Name: t.Name, QFmt: t.QFmt, AFmt: t.AFmt})
	}
	return m
}
