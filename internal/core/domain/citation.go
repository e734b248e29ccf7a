package domain

import (
	"strconv"
	"strings"
)

// Citation text format.
const (
	sourcePrefix   = "Source: "
	titlePrefix    = "Title: "
	pagePrefix     = "p. "
	sourcePartSep  = " - "
	pageSep        = ", "
	blockSeparator = "\n\n"
)

// Presentation defaults for citations without a source or title.
const (
	UnknownSource   = "Unknown source"
	UntitledSection = "Untitled section"
)

// Citation is a context block parsed back from assembled context.
type Citation struct {
	Text     string
	Metadata ChunkMetadata
}

// Source returns the rendered source, e.g. "gdpr.pdf - p. 3, 4".
func (c Citation) Source() string {
	if s := sourceValue(c.Metadata); s != "" {
		return s
	}
	return UnknownSource
}

// Title returns the section title or the untitled default.
func (c Citation) Title() string {
	return c.Metadata.TitleOr(UntitledSection)
}

// lineBreaks folds line breaks into spaces; a citation field spans one
// line or the parser would lose it.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func sourceValue(m ChunkMetadata) string {
	var parts []string
	if name := m.FilenameOr(""); name != "" {
		parts = append(parts, lineBreaks.Replace(name))
	}
	if len(m.PageNumbers) > 0 {
		pages := make([]string, len(m.PageNumbers))
		for i, p := range m.PageNumbers {
			pages[i] = strconv.Itoa(p)
		}
		parts = append(parts, pagePrefix+strings.Join(pages, pageSep))
	}
	return strings.Join(parts, sourcePartSep)
}

// RenderCitation renders the citation lines for metadata. The source line
// is omitted when there is neither filename nor pages, the title line
// when the title is null or empty. Line breaks inside the filename or
// title are rendered as spaces.
func RenderCitation(m ChunkMetadata) string {
	var lines []string
	if s := sourceValue(m); s != "" {
		lines = append(lines, sourcePrefix+s)
	}
	if t := m.TitleOr(""); t != "" {
		lines = append(lines, titlePrefix+lineBreaks.Replace(t))
	}
	return strings.Join(lines, "\n")
}

// ParseCitation is the inverse of RenderCitation. Unknown lines are ignored.
func ParseCitation(s string) ChunkMetadata {
	var meta ChunkMetadata
	for _, line := range strings.Split(s, "\n") {
		switch {
		case strings.HasPrefix(line, sourcePrefix):
			parseSource(strings.TrimPrefix(line, sourcePrefix), &meta)
		case strings.HasPrefix(line, titlePrefix):
			if t := strings.TrimPrefix(line, titlePrefix); t != "" {
				meta.Title = &t
			}
		}
	}
	return meta
}

func parseSource(value string, meta *ChunkMetadata) {
	// The separator is tried first: a filename may itself start with
	// "p. ", and only a source without filename starts with the pages.
	name, pages := value, ""
	if i := strings.LastIndex(value, sourcePartSep+pagePrefix); i >= 0 {
		name, pages = value[:i], value[i+len(sourcePartSep+pagePrefix):]
	} else if rest, ok := strings.CutPrefix(value, pagePrefix); ok {
		name, pages = "", rest
	}

	if name != "" {
		meta.Filename = &name
	}
	if pages == "" {
		return
	}
	for _, p := range strings.Split(pages, pageSep) {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			// Not a page list; keep the whole value as the filename.
			full := value
			meta.Filename = &full
			meta.PageNumbers = nil
			return
		}
		meta.PageNumbers = append(meta.PageNumbers, n)
	}
}

// RenderBlock renders one search result as a context block.
func RenderBlock(r SearchResult) string {
	citation := RenderCitation(r.Metadata)
	if citation == "" {
		return r.Text
	}
	return r.Text + "\n" + citation
}

// JoinBlocks joins rendered blocks with a blank line, keeping their order.
func JoinBlocks(blocks []string) string {
	return strings.Join(blocks, blockSeparator)
}

// ParseContext splits assembled context back into citations.
//
// Chunk text may itself contain blank lines, so blank-line segments are
// accumulated until a segment ends in citation lines. Trailing segments
// without citation lines form a final block.
func ParseContext(context string) []Citation {
	if strings.TrimSpace(context) == "" {
		return nil
	}

	var (
		citations []Citation
		pending   []string
	)
	for _, segment := range strings.Split(context, blockSeparator) {
		text, cite := splitCitationLines(segment)
		if cite == "" {
			pending = append(pending, segment)
			continue
		}
		pending = append(pending, text)
		body := strings.TrimSpace(strings.Join(pending, blockSeparator))
		pending = pending[:0]
		if body == "" {
			continue
		}
		citations = append(citations, Citation{Text: body, Metadata: ParseCitation(cite)})
	}

	if body := strings.TrimSpace(strings.Join(pending, blockSeparator)); body != "" {
		citations = append(citations, Citation{Text: body})
	}
	return citations
}

// splitCitationLines separates trailing Source/Title lines from a segment.
func splitCitationLines(segment string) (text, citation string) {
	lines := strings.Split(segment, "\n")
	i := len(lines)
	for i > 0 && isCitationLine(lines[i-1]) {
		i--
	}
	if i == len(lines) {
		return segment, ""
	}
	return strings.Join(lines[:i], "\n"), strings.Join(lines[i:], "\n")
}

func isCitationLine(line string) bool {
	return strings.HasPrefix(line, sourcePrefix) || strings.HasPrefix(line, titlePrefix)
}
