package whatsapp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var excessNewlines = regexp.MustCompile(`\n{3,}`)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough),
)

// FormatMarkdown converts Markdown to WhatsApp markup: *bold*, _italic_,
// ~strike~, monospace code, bullet lists with • and bold headings.
func FormatMarkdown(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}

	src := []byte(source)
	doc := markdown.Parser().Parse(text.NewReader(src))

	r := &whatsappRenderer{source: src}
	if err := ast.Walk(doc, r.walk); err != nil {
		return source
	}

	out := excessNewlines.ReplaceAllString(r.sb.String(), "\n\n")
	return strings.TrimSpace(out)
}

type listState struct {
	ordered bool
	next    int
}

type whatsappRenderer struct {
	sb        strings.Builder
	source    []byte
	lists     []listState
	inHeading bool
	inQuote   bool
}

func (r *whatsappRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		return r.handleHeading(entering)
	case ast.KindParagraph, ast.KindTextBlock:
		return r.handleParagraph(entering)
	case ast.KindText:
		return r.handleText(n.(*ast.Text), entering)
	case ast.KindString:
		if entering {
			r.sb.Write(n.(*ast.String).Value)
		}
	case ast.KindEmphasis:
		return r.handleEmphasis(n.(*ast.Emphasis), entering)
	case extast.KindStrikethrough:
		if !r.inHeading {
			r.sb.WriteString("~")
		}
	case ast.KindCodeSpan:
		return r.handleCodeSpan(n, entering)
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return r.handleCodeBlock(n, entering)
	case ast.KindHTMLBlock:
		return r.handleCodeBlock(n, entering)
	case ast.KindRawHTML:
		if entering {
			segments := n.(*ast.RawHTML).Segments
			for i := 0; i < segments.Len(); i++ {
				segment := segments.At(i)
				r.sb.Write(segment.Value(r.source))
			}
		}
		return ast.WalkSkipChildren, nil
	case ast.KindLink:
		return r.handleLink(n.(*ast.Link), entering)
	case ast.KindAutoLink:
		if entering {
			r.sb.Write(n.(*ast.AutoLink).URL(r.source))
		}
		return ast.WalkSkipChildren, nil
	case ast.KindImage:
		return r.handleImage(n.(*ast.Image), entering)
	case ast.KindList:
		return r.handleList(n.(*ast.List), entering)
	case ast.KindListItem:
		return r.handleListItem(entering)
	case ast.KindBlockquote:
		r.inQuote = entering
		if !entering {
			r.sb.WriteString("\n")
		}
	case ast.KindThematicBreak:
		if entering {
			r.sb.WriteString("\n")
		}
	case extast.KindTable:
		return r.handleTable(n, entering)
	}
	return ast.WalkContinue, nil
}

func (r *whatsappRenderer) handleHeading(entering bool) (ast.WalkStatus, error) {
	r.inHeading = entering
	if entering {
		r.sb.WriteString("*")
	} else {
		r.sb.WriteString("*\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *whatsappRenderer) handleParagraph(entering bool) (ast.WalkStatus, error) {
	if entering {
		if r.inQuote {
			r.sb.WriteString("> ")
		}
		return ast.WalkContinue, nil
	}
	// List items end their own line
	if len(r.lists) == 0 {
		r.sb.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *whatsappRenderer) handleText(n *ast.Text, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	r.sb.Write(n.Segment.Value(r.source))
	if n.SoftLineBreak() || n.HardLineBreak() {
		r.sb.WriteString("\n")
		if r.inQuote {
			r.sb.WriteString("> ")
		}
	}
	return ast.WalkContinue, nil
}

// handleEmphasis keeps single-asterisk emphasis as bold, since WhatsApp
// writers use *text* for bold; only _text_ stays italic.
func (r *whatsappRenderer) handleEmphasis(n *ast.Emphasis, entering bool) (ast.WalkStatus, error) {
	if r.inHeading {
		return ast.WalkContinue, nil
	}
	marker := "*"
	if n.Level == 1 && r.delimiter(n) == '_' {
		marker = "_"
	}
	r.sb.WriteString(marker)
	return ast.WalkContinue, nil
}

// delimiter returns the byte that opened an emphasis span
func (r *whatsappRenderer) delimiter(n ast.Node) byte {
	for c := n.FirstChild(); c != nil; c = c.FirstChild() {
		if t, ok := c.(*ast.Text); ok {
			if start := t.Segment.Start; start > 0 {
				return r.source[start-1]
			}
			return 0
		}
	}
	return 0
}

func (r *whatsappRenderer) handleCodeSpan(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	r.sb.WriteString("`")
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			r.sb.Write(t.Segment.Value(r.source))
		}
	}
	r.sb.WriteString("`")
	return ast.WalkSkipChildren, nil
}

func (r *whatsappRenderer) handleCodeBlock(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	lines := n.Lines()
	r.sb.WriteString("```\n")
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.sb.Write(line.Value(r.source))
	}
	r.sb.WriteString("```\n\n")
	return ast.WalkSkipChildren, nil
}

func (r *whatsappRenderer) handleLink(n *ast.Link, entering bool) (ast.WalkStatus, error) {
	if entering {
		return ast.WalkContinue, nil
	}
	destination := string(n.Destination)
	if destination != "" && destination != string(n.Text(r.source)) {
		r.sb.WriteString(" (" + destination + ")")
	}
	return ast.WalkContinue, nil
}

func (r *whatsappRenderer) handleImage(n *ast.Image, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	alt := strings.TrimSpace(string(n.Text(r.source)))
	if alt != "" {
		r.sb.WriteString(alt + " ")
	}
	r.sb.WriteString("(" + string(n.Destination) + ")")
	return ast.WalkSkipChildren, nil
}

func (r *whatsappRenderer) handleList(n *ast.List, entering bool) (ast.WalkStatus, error) {
	if entering {
		if len(r.lists) > 0 && !strings.HasSuffix(r.sb.String(), "\n") {
			r.sb.WriteString("\n")
		}
		start := n.Start
		if start == 0 {
			start = 1
		}
		r.lists = append(r.lists, listState{ordered: n.IsOrdered(), next: start})
		return ast.WalkContinue, nil
	}

	r.lists = r.lists[:len(r.lists)-1]
	if len(r.lists) == 0 {
		r.sb.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *whatsappRenderer) handleListItem(entering bool) (ast.WalkStatus, error) {
	if !entering {
		if !strings.HasSuffix(r.sb.String(), "\n") {
			r.sb.WriteString("\n")
		}
		return ast.WalkContinue, nil
	}

	depth := len(r.lists) - 1
	state := &r.lists[depth]
	r.sb.WriteString(strings.Repeat("  ", depth))
	if state.ordered {
		r.sb.WriteString(strconv.Itoa(state.next) + ". ")
		state.next++
	} else {
		r.sb.WriteString("• ")
	}
	return ast.WalkContinue, nil
}

// handleTable renders each row on one line with cells separated by " | "
func (r *whatsappRenderer) handleTable(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var rows []ast.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		rows = append(rows, child)
	}

	for i, row := range rows {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(string(cell.Text(r.source))))
		}
		line := strings.Join(cells, " | ")
		if i == 0 {
			if _, ok := row.(*extast.TableHeader); ok {
				line = "*" + line + "*"
			}
		}
		r.sb.WriteString(line + "\n")
	}
	r.sb.WriteString("\n")
	return ast.WalkSkipChildren, nil
}
