// Package codec converts between file text and a flat key/value map
// for two formats: a JSON object and a single-level XML document.
//
// This is line-oriented text scanning, not a JSON or XML parser.
// Only flat, delimiter-free keys and values round-trip:
//   - JSON: keys and values must not contain ',', ':' or '"'
//   - XML: keys and values must not contain '<' or '>'
//
// Anything else produces an undefined (but never panicking) result.
// Nested JSON objects, arrays, XML attributes and nested elements are not supported.
package codec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kjk/flatkv/kvmap"
)

var (
	// ErrUnsupportedFormat is returned for format tags other than "JSON" and "XML"
	// and for file names without .json or .xml extension
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrUnparseable is returned by Validate when format markers are missing
	ErrUnparseable = errors.New("unparseable document")
)

type Format int

const (
	JSON Format = iota + 1
	XML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "JSON"
	case XML:
		return "XML"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns file extension, including the dot
func (f Format) Ext() string {
	switch f {
	case JSON:
		return ".json"
	case XML:
		return ".xml"
	}
	return ""
}

// ParseFormat accepts exactly "JSON" or "XML"
func ParseFormat(tag string) (Format, error) {
	switch tag {
	case "JSON":
		return JSON, nil
	case "XML":
		return XML, nil
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnsupportedFormat, tag)
}

// FormatFromPath decides format based on file extension (.json or .xml)
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	switch ext {
	case ".json":
		return JSON, nil
	case ".xml":
		return XML, nil
	}
	return 0, fmt.Errorf("%w: '%s' (file '%s')", ErrUnsupportedFormat, ext, path)
}

const (
	xmlOpen  = "<root>"
	xmlClose = "</root>"
	indent   = "    "
)

// Empty returns content of a freshly created document
func Empty(f Format) string {
	if f == XML {
		return xmlOpen + xmlClose
	}
	return "{}"
}

// Decode never fails. Text without format markers decodes to an empty map.
func Decode(f Format, text string) *kvmap.Map {
	if f == XML {
		return decodeXML(text)
	}
	return decodeJSON(text)
}

func jsonBody(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return "", false
	}
	return text[start+1 : end], true
}

func xmlBody(text string) (string, bool) {
	start := strings.Index(text, xmlOpen)
	if start < 0 {
		return "", false
	}
	start += len(xmlOpen)
	end := strings.Index(text[start:], xmlClose)
	if end < 0 {
		return "", false
	}
	return text[start : start+end], true
}

func cleanJSONPart(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}

func decodeJSON(text string) *kvmap.Map {
	m := kvmap.New()
	body, ok := jsonBody(text)
	if !ok {
		return m
	}
	for _, part := range strings.Split(body, ",") {
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		key = cleanJSONPart(key)
		if key == "" {
			continue
		}
		m.Set(key, cleanJSONPart(val))
	}
	return m
}

// body looks like:
//
//	<k1>v1</k1><k2>v2</k2>
//
// after splitting on '>' each part is "<text><tag" where
// tag is either an opening "k" or a closing "/k".
// A tag only closes the currently open key, so keys may start or end with '/'
func decodeXML(text string) *kvmap.Map {
	m := kvmap.New()
	body, ok := xmlBody(text)
	if !ok {
		return m
	}
	open := ""
	for _, part := range strings.Split(body, ">") {
		txt, tag, ok := strings.Cut(part, "<")
		if !ok {
			continue
		}
		tag = strings.TrimSpace(tag)
		if open != "" && strings.HasPrefix(tag, "/") && strings.TrimSpace(tag[1:]) == open {
			m.Set(open, strings.TrimSpace(txt))
			open = ""
			continue
		}
		open = tag
	}
	return m
}

// Validate returns ErrUnparseable if non-blank text doesn't have format markers.
// Blank text is a valid, empty document.
func Validate(f Format, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var ok bool
	if f == XML {
		_, ok = xmlBody(text)
	} else {
		_, ok = jsonBody(text)
	}
	if !ok {
		return fmt.Errorf("%w: missing %s markers", ErrUnparseable, f)
	}
	return nil
}

// Encode is the inverse of Decode. An empty map encodes to Empty(f).
func Encode(f Format, m *kvmap.Map) string {
	if m == nil || m.Len() == 0 {
		return Empty(f)
	}
	var sb strings.Builder
	if f == XML {
		sb.WriteString(xmlOpen + "\n")
		for _, e := range m.Entries() {
			sb.WriteString(indent + "<" + e.Key + ">" + e.Value + "</" + e.Key + ">\n")
		}
		sb.WriteString(xmlClose)
		return sb.String()
	}

	sb.WriteString("{\n")
	for i, e := range m.Entries() {
		if i > 0 {
			sb.WriteString(",\n")
		}
		sb.WriteString(indent + `"` + e.Key + `": "` + e.Value + `"`)
	}
	sb.WriteString("\n}")
	return sb.String()
}
