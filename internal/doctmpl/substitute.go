// Package doctmpl substitutes {{PLACEHOLDER}} tokens in docx templates.
//
// Substitution operates on whole-paragraph text rather than individual runs,
// because word processors routinely split a placeholder's literal text across
// several formatting runs. A rewritten paragraph collapses to a single run
// that keeps the first run's formatting.
package doctmpl

import (
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// placeholderRegex matches {{NAME}} where NAME is uppercase letters,
// underscores and spaces, e.g. {{NOMBRES}} or {{TIPO DE EVENTO}}.
var placeholderRegex = regexp.MustCompile(`\{\{([A-Z_ ]+)\}\}`)

// Engine implements placeholder substitution over docx documents.
type Engine struct{}

// New returns a substitution engine.
func New() *Engine {
	return &Engine{}
}

// Substitute replaces every known placeholder in the document body, table
// cells and header/footer parts. Unknown placeholders are left verbatim and
// reported as warnings; variable keys are uppercased before lookup.
func (e *Engine) Substitute(template []byte, vars map[string]string) ([]byte, []string, error) {
	upper := make(map[string]string, len(vars))
	for k, v := range vars {
		upper[strings.ToUpper(k)] = v
	}

	unmatched := make(map[string]struct{})
	rendered, err := rewriteParts(template, func(partName string, xml []byte) ([]byte, error) {
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(xml); err != nil {
			return nil, err
		}
		for _, p := range findParagraphs(doc.Root()) {
			substituteParagraph(p, upper, unmatched)
		}
		return doc.WriteToBytes()
	})
	if err != nil {
		return nil, nil, err
	}

	warnings := make([]string, 0, len(unmatched))
	for name := range unmatched {
		warnings = append(warnings, "placeholder {{"+name+"}} has no value and was left as-is")
	}
	sort.Strings(warnings)
	return rendered, warnings, nil
}

// findParagraphs walks the tree collecting every w:p element. Paragraphs
// inside table cells (w:tbl/w:tr/w:tc) are reached by the same walk.
func findParagraphs(el *etree.Element) []*etree.Element {
	if el == nil {
		return nil
	}
	var out []*etree.Element
	if el.Space == "w" && el.Tag == "p" {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = append(out, findParagraphs(child)...)
	}
	return out
}

// paragraphText concatenates the text of every w:t descendant.
func paragraphText(p *etree.Element) string {
	var sb strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.Space == "w" && el.Tag == "t" {
			sb.WriteString(el.Text())
			return
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(p)
	return sb.String()
}

// firstRunProperties returns a deep copy of the first run's w:rPr, or nil.
func firstRunProperties(p *etree.Element) *etree.Element {
	var find func(el *etree.Element) *etree.Element
	find = func(el *etree.Element) *etree.Element {
		if el.Space == "w" && el.Tag == "r" {
			if rPr := el.SelectElement("w:rPr"); rPr != nil {
				return rPr.Copy()
			}
			return nil
		}
		for _, child := range el.ChildElements() {
			if r := find(child); r != nil {
				return r
			}
		}
		return nil
	}
	for _, child := range p.ChildElements() {
		if r := find(child); r != nil {
			return r
		}
	}
	return nil
}

func substituteParagraph(p *etree.Element, vars map[string]string, unmatched map[string]struct{}) {
	fullText := paragraphText(p)
	if !strings.Contains(fullText, "{{") {
		return
	}
	matches := placeholderRegex.FindAllStringSubmatch(fullText, -1)
	if len(matches) == 0 {
		return
	}

	newText := fullText
	for _, m := range matches {
		name := m[1]
		if value, ok := vars[name]; ok {
			newText = strings.ReplaceAll(newText, m[0], value)
		} else {
			unmatched[name] = struct{}{}
		}
	}
	if newText == fullText {
		return
	}

	rPr := firstRunProperties(p)

	// Drop everything except paragraph properties, then append one run
	// carrying the rewritten text. Intra-paragraph formatting variation is
	// intentionally flattened.
	for _, child := range p.ChildElements() {
		if child.Space == "w" && child.Tag == "pPr" {
			continue
		}
		p.RemoveChild(child)
	}
	run := p.CreateElement("w:r")
	if rPr != nil {
		run.AddChild(rPr)
	}
	t := run.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(newText)
}
