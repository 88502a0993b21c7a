// Package frontmatter reads the YAML header block at the top of a document.
//
// Two layouts are recognized. The native layout is the leading block of lines
// up to the first blank line. A document that opens with a `---` line instead
// uses delimited front matter closed by another `---` line.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// Parts is a document split into its header and the remaining body.
type Parts struct {
	Header    []byte
	Body      []byte
	Delimited bool
}

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Split separates the header block from the body.
func Split(content []byte) (Parts, error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if bytes.HasPrefix(content, open) {
		return splitDelimited(content, nl)
	}
	header, body := LeadingBlock(content)
	return Parts{Header: header, Body: body}, nil
}

func splitDelimited(content []byte, nl string) (Parts, error) {
	start := len("---" + nl)
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(content[start:], closeLine) {
		return Parts{Header: []byte{}, Body: content[start+len(closeLine):], Delimited: true}, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter at EOF without a trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			end := len(content) - len(nl+"---")
			return Parts{Header: content[start : end+len(nl)], Body: []byte{}, Delimited: true}, nil
		}
		return Parts{}, ErrMissingClosingDelimiter
	}
	return Parts{
		Header:    content[start : start+idx+len(nl)],
		Body:      content[start+idx+len(closeSeq):],
		Delimited: true,
	}, nil
}

// LeadingBlock returns the lines before the first blank line, right-trimmed
// and joined with "\n", together with everything after that blank line.
func LeadingBlock(content []byte) (block, rest []byte) {
	var lines [][]byte
	remaining := content
	for len(remaining) > 0 {
		line := remaining
		next := []byte(nil)
		if i := bytes.IndexByte(remaining, '\n'); i >= 0 {
			line = remaining[:i]
			next = remaining[i+1:]
		}
		remaining = next
		trimmed := bytes.TrimRight(line, " \t\r")
		if len(trimmed) == 0 {
			break
		}
		lines = append(lines, trimmed)
	}
	if remaining == nil {
		remaining = []byte{}
	}
	return bytes.Join(lines, []byte("\n")), remaining
}

// TrimLeadingBlankLines drops the empty or whitespace-only lines at the
// start of content.
func TrimLeadingBlankLines(content []byte) []byte {
	for len(content) > 0 {
		i := bytes.IndexByte(content, '\n')
		if i < 0 {
			if len(bytes.TrimSpace(content)) == 0 {
				return []byte{}
			}
			return content
		}
		if len(bytes.TrimSpace(content[:i])) != 0 {
			return content
		}
		content = content[i+1:]
	}
	return content
}

// ParseYAML decodes a header block. An empty or comment-only header yields
// nil. The result is whatever YAML value the header holds; callers decide
// whether a non-mapping value is acceptable.
func ParseYAML(header []byte) (any, error) {
	if len(bytes.TrimSpace(header)) == 0 {
		return nil, nil
	}
	var value any
	if err := yaml.Unmarshal(header, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
