package docindex

import (
	"regexp"
	"strings"

	"github.com/recallhq/recall/internal/identity"
	"github.com/recallhq/recall/pkg/types"
)

// headingRE matches an ATX heading line: up to three leading spaces, one to
// six hashes, then the heading text. A hash run with no following space is
// not a heading.
var headingRE = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*))?$`)

// parsedDoc is the outcome of sectioning one document: the heading tree in
// document order plus each section's own text span. A body includes the
// section's heading line but none of its child sections, so chunking a
// parent never duplicates child content.
type parsedDoc struct {
	Title    string // first level-1 heading, empty when there is none
	Sections []types.Section
	Bodies   map[string]string // section_id -> chunkable text
}

// parseDocument builds the section tree of a markdown document. Headings
// are processed stack-wise: a new heading closes every open section at its
// level or deeper and becomes a child of the nearest still-open shallower
// one. Text before the first heading becomes a synthetic heading-less
// section so it still gets chunked and searched.
func parseDocument(content, docID string) *parsedDoc {
	doc := &parsedDoc{Bodies: make(map[string]string)}

	var stack []int // indices into doc.Sections, shallowest first

	closeTo := func(level, offset int) {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if doc.Sections[top].Level < level {
				break
			}
			doc.Sections[top].EndOffset = offset
			stack = stack[:len(stack)-1]
		}
	}

	// lastOwner is the section currently accumulating body text; -1 means
	// we are still in the preamble before any heading.
	lastOwner := -1
	ownStart := 0

	flushBody := func(end int) {
		span := content[ownStart:end]
		if lastOwner >= 0 {
			doc.Bodies[doc.Sections[lastOwner].SectionID] = span
			return
		}
		if strings.TrimSpace(span) == "" {
			return
		}
		sec := types.Section{
			SectionID:   identity.SectionID(docID, 0),
			DocID:       docID,
			Level:       1,
			StartOffset: 0,
			EndOffset:   end,
		}
		doc.Sections = append(doc.Sections, sec)
		doc.Bodies[sec.SectionID] = span
	}

	inFence := false
	var fenceMark byte

	off := 0
	for off < len(content) {
		var line string
		next := len(content)
		if nl := strings.IndexByte(content[off:], '\n'); nl >= 0 {
			line = content[off : off+nl]
			next = off + nl + 1
		} else {
			line = content[off:]
		}

		if mark, ok := fenceMarker(strings.TrimSpace(line)); ok {
			if !inFence {
				inFence, fenceMark = true, mark
			} else if mark == fenceMark {
				inFence = false
			}
			off = next
			continue
		}

		if !inFence {
			if m := headingRE.FindStringSubmatch(line); m != nil {
				level := len(m[1])
				heading := strings.TrimSpace(strings.TrimRight(m[2], "# \t"))

				flushBody(off)
				closeTo(level, off)

				parentID := ""
				if len(stack) > 0 {
					parentID = doc.Sections[stack[len(stack)-1]].SectionID
				}
				doc.Sections = append(doc.Sections, types.Section{
					SectionID:   identity.SectionID(docID, off),
					DocID:       docID,
					ParentID:    parentID,
					Heading:     heading,
					Level:       level,
					StartOffset: off,
				})
				stack = append(stack, len(doc.Sections)-1)

				if level == 1 && doc.Title == "" {
					doc.Title = heading
				}
				lastOwner = len(doc.Sections) - 1
				ownStart = off
			}
		}

		off = next
	}

	flushBody(len(content))
	closeTo(0, len(content))
	return doc
}

// fenceMarker reports whether a trimmed line opens or closes a fenced code
// block, and with which marker character.
func fenceMarker(trimmed string) (byte, bool) {
	if strings.HasPrefix(trimmed, "```") {
		return '`', true
	}
	if strings.HasPrefix(trimmed, "~~~") {
		return '~', true
	}
	return 0, false
}

// chunkSection splits one section body into chunks. A section that fits
// under maxBytes stays whole; otherwise paragraphs accumulate into a
// running chunk that flushes just before it would exceed the threshold.
// A single paragraph larger than maxBytes is never split below paragraph
// granularity and comes through oversized.
func chunkSection(body string, maxBytes int) []string {
	body = strings.TrimRight(body, " \t\n")
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if len(body) <= maxBytes {
		return []string{body}
	}

	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, para := range splitParagraphs(body) {
		if cur.Len() > 0 && cur.Len()+len(para)+2 > maxBytes {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return chunks
}

// splitParagraphs breaks text at blank-line boundaries
func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, "\n"))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, "\n"))
	}
	return paras
}
