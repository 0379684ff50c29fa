package mdast

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

const maxFrontMatterBytes = 64 * 1024

// FrontMatterFormat names the syntax of a front matter block.
type FrontMatterFormat string

const (
	FrontMatterYAML FrontMatterFormat = "yaml"
	FrontMatterTOML FrontMatterFormat = "toml"
	FrontMatterJSON FrontMatterFormat = "json"
)

// FrontMatter is the metadata block at the very start of a document,
// delimited by ---, +++ or ;;; lines.
type FrontMatter struct {
	Format FrontMatterFormat
	Raw    string
	// Data is the decoded block. It is nil when decoding failed.
	Data map[string]any
}

// extractFrontMatter splits a leading front matter block from src. It
// returns the body that follows and the number of lines the block used. A
// delimiter line followed by something that does not look like metadata, or
// a block that is never closed, is not front matter.
func extractFrontMatter(src []byte) (*FrontMatter, []byte, int, error) {
	openLine, openNext := nextLine(src, 0)
	delim, format, ok := parseOpeningFrontMatterDelimiter(openLine)
	if !ok {
		return nil, src, 0, nil
	}
	secondLine, _ := nextLine(src, openNext)
	if !frontMatterMetadataLikely(secondLine) {
		return nil, src, 0, nil
	}
	closeStart, closeNext, found := findClosingFrontMatterDelimiter(src, openNext, delim)
	if !found || closeNext > maxFrontMatterBytes {
		return nil, src, 0, nil
	}
	raw := src[openNext:closeStart]
	fm := &FrontMatter{Format: format, Raw: string(raw)}
	lines := bytes.Count(src[:closeNext], []byte("\n"))
	if closeNext == len(src) && !bytes.HasSuffix(src, []byte("\n")) {
		lines++
	}
	data, err := decodeFrontMatter(format, raw)
	if err != nil {
		return fm, src[closeNext:], lines, fmt.Errorf("front matter: decode %s: %w", format, err)
	}
	fm.Data = data
	return fm, src[closeNext:], lines, nil
}

func decodeFrontMatter(format FrontMatterFormat, raw []byte) (map[string]any, error) {
	data := make(map[string]any)
	var err error
	switch format {
	case FrontMatterYAML:
		err = yaml.Unmarshal(raw, &data)
	case FrontMatterTOML:
		err = toml.Unmarshal(raw, &data)
	case FrontMatterJSON:
		trimmed := bytes.TrimSpace(raw)
		if !bytes.HasPrefix(trimmed, []byte("{")) {
			trimmed = append(append([]byte("{"), trimmed...), '}')
		}
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(trimmed, &data)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// nextLine returns the line starting at start without its terminator, and
// the offset of the following line.
func nextLine(src []byte, start int) ([]byte, int) {
	if start >= len(src) {
		return nil, len(src)
	}
	i := bytes.IndexByte(src[start:], '\n')
	if i < 0 {
		return trimCR(src[start:]), len(src)
	}
	return trimCR(src[start : start+i]), start + i + 1
}

func parseOpeningFrontMatterDelimiter(line []byte) ([]byte, FrontMatterFormat, bool) {
	switch string(bytes.TrimSpace(trimBOM(line))) {
	case "---":
		return []byte("---"), FrontMatterYAML, true
	case "+++":
		return []byte("+++"), FrontMatterTOML, true
	case ";;;":
		return []byte(";;;"), FrontMatterJSON, true
	}
	return nil, "", false
}

func frontMatterMetadataLikely(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return false
	}
	if bytes.HasPrefix(trimmed, []byte("{")) || bytes.HasPrefix(trimmed, []byte("[")) {
		return true
	}
	return bytes.Contains(trimmed, []byte(":")) || bytes.Contains(trimmed, []byte("="))
}

// findClosingFrontMatterDelimiter returns where the closing delimiter line
// starts and where the line after it starts.
func findClosingFrontMatterDelimiter(src []byte, start int, delim []byte) (int, int, bool) {
	for idx := start; idx < len(src); {
		line, next := nextLine(src, idx)
		if bytes.Equal(bytes.TrimSpace(line), delim) {
			return idx, next, true
		}
		idx = next
	}
	return 0, 0, false
}

func trimCR(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\r' {
		return b[:len(b)-1]
	}
	return b
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
