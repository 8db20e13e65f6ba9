package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/lectorapp/lector/playback"
)

// SegmentMarkdown partitions markdown text using the document AST
// instead of line heuristics, so setext headings and headings inside
// block structure are found reliably. When the document has no
// headings at all it falls back to the plain-text heuristics.
func (s *Segmenter) SegmentMarkdown(text string) ([]playback.Chapter, []playback.Paragraph) {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil, nil
	}

	src := []byte(text)
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	var byteOffsets []int
	var titles []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		seg := h.Lines().At(0)
		byteOffsets = append(byteOffsets, lineStart(src, seg.Start))
		titles = append(titles, strings.TrimSpace(string(h.Text(src))))
		return ast.WalkSkipChildren, nil
	})

	paragraphs := scanParagraphs(splitLines(runes), total)
	if len(byteOffsets) == 0 {
		return s.Segment(text)
	}

	runeOffsets := bytesToRunes(src, byteOffsets)
	boundaries := make([]boundary, 0, len(runeOffsets))
	for i, off := range runeOffsets {
		boundaries = append(boundaries, boundary{offset: off, title: titles[i]})
	}
	return s.assemble(boundaries, total), paragraphs
}

// Markdown adapts a Segmenter to the playback.Segmenter interface
// using the markdown-aware path.
type Markdown struct {
	*Segmenter
}

// Segment partitions markdown text via the document AST.
func (m Markdown) Segment(text string) ([]playback.Chapter, []playback.Paragraph) {
	return m.SegmentMarkdown(text)
}

// lineStart walks back from a byte offset to the start of its line.
func lineStart(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

// bytesToRunes converts ascending byte offsets into rune offsets with
// a single pass over the source.
func bytesToRunes(src []byte, byteOffsets []int) []int {
	out := make([]int, len(byteOffsets))
	runeOff, byteOff, i := 0, 0, 0
	for i < len(byteOffsets) {
		if byteOff >= byteOffsets[i] {
			out[i] = runeOff
			i++
			continue
		}
		_, size := utf8.DecodeRune(src[byteOff:])
		if size == 0 {
			size = 1
		}
		byteOff += size
		runeOff++
	}
	return out
}
