// Package segment partitions raw document text into chapters and
// paragraphs for playback.
package segment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lectorapp/lector/playback"
)

// Segmenter proposes chapter boundaries from heading-like delimiters
// in raw text. Segmentation is deterministic: identical input always
// yields identical chapter and paragraph lists. All offsets are rune
// counts into the full text.
type Segmenter struct {
	minChapterLength int

	mdHeading *regexp.Regexp
	labeled   *regexp.Regexp
	numbered  *regexp.Regexp
	generic   *regexp.Regexp
}

// New creates a segmenter using the configured minimum chapter length.
func New(cfg playback.Config) *Segmenter {
	return &Segmenter{
		minChapterLength: cfg.MinChapterLength,

		mdHeading: regexp.MustCompile(`^(#{1,6})\s+(.+)$`),
		labeled: regexp.MustCompile(
			`^(?i)(chapter|section|part|book)\s+([0-9]+|[ivxlcdm]+)\b[.:]?\s*(.*)$`,
		),
		numbered: regexp.MustCompile(`^\d{1,3}[.)]\s+\S`),

		// Placeholder titles the segmenter itself produces when no
		// real heading is found. Only chapters carrying one of these
		// can be merged away as filler.
		generic: regexp.MustCompile(`^(?i)(chapter|section|part)\s+\d+$`),
	}
}

// line is a single text line addressed by rune offsets. end excludes
// the trailing newline.
type line struct {
	start, end int
	text       string
}

// boundary is a proposed chapter start.
type boundary struct {
	offset  int
	title   string
	generic bool
}

// Segment partitions text into chapters and paragraphs. When no
// chapter boundaries are found it returns an empty chapter list and a
// paragraph list covering the whole text; callers treat that as an
// unsegmented document and fall back to global-position-only
// navigation.
func (s *Segmenter) Segment(text string) ([]playback.Chapter, []playback.Paragraph) {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil, nil
	}

	lines := splitLines(runes)
	paragraphs := scanParagraphs(lines, total)

	var boundaries []boundary
	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if trimmed == "" {
			continue
		}
		if m := s.mdHeading.FindStringSubmatch(trimmed); m != nil {
			boundaries = append(boundaries, boundary{offset: ln.start, title: strings.TrimSpace(m[2])})
			continue
		}
		if s.labeled.MatchString(trimmed) {
			boundaries = append(boundaries, boundary{offset: ln.start, title: trimmed})
			continue
		}
		if len([]rune(trimmed)) < 80 && s.numbered.MatchString(trimmed) {
			boundaries = append(boundaries, boundary{offset: ln.start, title: trimmed})
		}
	}

	if len(boundaries) == 0 {
		return nil, paragraphs
	}

	return s.assemble(boundaries, total), paragraphs
}

// assemble turns proposed boundaries into a contiguous, ordered
// chapter list, merging filler fragments into their neighbors.
func (s *Segmenter) assemble(boundaries []boundary, total int) []playback.Chapter {
	// Text before the first heading becomes a placeholder chapter.
	if boundaries[0].offset > 0 {
		boundaries = append([]boundary{{offset: 0, title: "Chapter 1", generic: true}}, boundaries...)
	}

	chapters := make([]playback.Chapter, 0, len(boundaries))
	for i, b := range boundaries {
		end := total
		if i+1 < len(boundaries) {
			end = boundaries[i+1].offset
		}
		if end <= b.offset {
			continue
		}
		title := b.title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(chapters)+1)
		}
		chapters = append(chapters, playback.Chapter{
			Title:      title,
			StartIndex: b.offset,
			EndIndex:   end,
		})
	}

	chapters = s.mergeFiller(chapters)

	for i := range chapters {
		chapters[i].StartPosition = float64(chapters[i].StartIndex) / float64(total)
		chapters[i].EndPosition = float64(chapters[i].EndIndex) / float64(total)
	}
	return chapters
}

// mergeFiller rejects candidate chapters that are both too short to be
// real content and carry an auto-generated label, folding them into a
// neighbor. This keeps tables of contents and separator fragments from
// becoming spurious playback chapters.
func (s *Segmenter) mergeFiller(chapters []playback.Chapter) []playback.Chapter {
	out := make([]playback.Chapter, 0, len(chapters))
	for _, ch := range chapters {
		if ch.Length() <= s.minChapterLength && s.isGenericTitle(ch.Title) {
			if len(out) > 0 {
				out[len(out)-1].EndIndex = ch.EndIndex
				continue
			}
			// No previous chapter: remember the span so the next real
			// chapter absorbs it.
			out = append(out, ch)
			continue
		}
		if len(out) == 1 && out[0].Length() <= s.minChapterLength && s.isGenericTitle(out[0].Title) {
			// Absorb a leading filler fragment into this chapter.
			ch.StartIndex = out[0].StartIndex
			out = out[:0]
		}
		out = append(out, ch)
	}
	return out
}

func (s *Segmenter) isGenericTitle(title string) bool {
	return s.generic.MatchString(strings.TrimSpace(title))
}

// splitLines splits runes into lines with rune offsets.
func splitLines(runes []rune) []line {
	var lines []line
	start := 0
	for i, r := range runes {
		if r == '\n' {
			lines = append(lines, line{start: start, end: i, text: string(runes[start:i])})
			start = i + 1
		}
	}
	if start < len(runes) {
		lines = append(lines, line{start: start, end: len(runes), text: string(runes[start:])})
	}
	return lines
}

// scanParagraphs groups lines into blank-line-delimited blocks. Text
// with no blank lines yields one paragraph covering everything.
func scanParagraphs(lines []line, total int) []playback.Paragraph {
	var paragraphs []playback.Paragraph
	start := -1
	end := 0
	for _, ln := range lines {
		if strings.TrimSpace(ln.text) == "" {
			if start >= 0 {
				paragraphs = append(paragraphs, playback.Paragraph{StartIndex: start, EndIndex: end})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = ln.start
		}
		end = ln.end
	}
	if start >= 0 {
		paragraphs = append(paragraphs, playback.Paragraph{StartIndex: start, EndIndex: end})
	}
	if len(paragraphs) == 0 && total > 0 {
		paragraphs = []playback.Paragraph{{StartIndex: 0, EndIndex: total}}
	}
	return paragraphs
}
