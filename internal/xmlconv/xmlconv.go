package xmlconv

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"syndicate/internal/services"
)

const indentWidth = 4

// ToXML converts a decoded JSON document into a tag-based serialization with
// stable indentation. Keys are emitted in sorted order so the same document
// always yields byte-identical output. Arrays become repeated elements.
func ToXML(doc map[string]any) (string, error) {
	var builder strings.Builder
	keys := sortedKeys(doc)
	for _, key := range keys {
		if err := writeValue(&builder, key, doc[key], 0); err != nil {
			return "", err
		}
	}
	return builder.String(), nil
}

func writeValue(builder *strings.Builder, key string, value any, depth int) error {
	if err := validateElementName(key); err != nil {
		return err
	}
	pad := strings.Repeat(" ", depth*indentWidth)

	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			fmt.Fprintf(builder, "%s<%s/>\n", pad, key)
			return nil
		}
		fmt.Fprintf(builder, "%s<%s>\n", pad, key)
		for _, child := range sortedKeys(typed) {
			if err := writeValue(builder, child, typed[child], depth+1); err != nil {
				return err
			}
		}
		fmt.Fprintf(builder, "%s</%s>\n", pad, key)
	case []any:
		for _, item := range typed {
			if err := writeValue(builder, key, item, depth); err != nil {
				return err
			}
		}
	default:
		text, err := scalarText(typed)
		if err != nil {
			return fmt.Errorf("element %s: %w", key, err)
		}
		fmt.Fprintf(builder, "%s<%s>%s</%s>\n", pad, key, escapeText(text), key)
	}
	return nil
}

func scalarText(value any) (string, error) {
	switch typed := value.(type) {
	case nil:
		return "", nil
	case string:
		return typed, nil
	case bool:
		return strconv.FormatBool(typed), nil
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(typed), nil
	case int64:
		return strconv.FormatInt(typed, 10), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

func escapeText(text string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(text))
	return buf.String()
}

func validateElementName(name string) error {
	if name == "" {
		return services.Wrap(services.ErrValidation, "xmlconv", "encode", "empty element name", nil)
	}
	for i, r := range name {
		valid := r == '_' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(i > 0 && r >= '0' && r <= '9')
		if !valid {
			return services.Wrap(services.ErrValidation, "xmlconv", "encode", fmt.Sprintf("invalid element name %q", name), nil)
		}
	}
	return nil
}

func sortedKeys(doc map[string]any) []string {
	keys := make([]string, 0, len(doc))
	for key := range doc {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// FromXML parses a serialization produced by ToXML back into the key/value
// structure it encodes. Scalar values come back as strings; repeated sibling
// elements come back as arrays.
func FromXML(serialized string) (map[string]any, error) {
	decoder := xml.NewDecoder(strings.NewReader("<root>" + serialized + "</root>"))
	if _, err := decoder.Token(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "xmlconv", "decode", "malformed document", err)
	}
	root, err := parseElement(decoder)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "xmlconv", "decode", "malformed document", err)
	}
	doc, ok := root.(map[string]any)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "xmlconv", "decode", "document has no elements", nil)
	}
	return doc, nil
}

// parseElement consumes tokens until the enclosing element closes and returns
// either the element's text or a map of its children.
func parseElement(decoder *xml.Decoder) (any, error) {
	children := make(map[string]any)
	var text strings.Builder

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch typed := token.(type) {
		case xml.StartElement:
			child, err := parseElement(decoder)
			if err != nil {
				return nil, err
			}
			appendChild(children, typed.Name.Local, child)
		case xml.EndElement:
			if len(children) > 0 {
				return children, nil
			}
			return text.String(), nil
		case xml.CharData:
			trimmed := strings.TrimSpace(string(typed))
			if trimmed != "" {
				text.WriteString(trimmed)
			}
		}
	}
}

func appendChild(children map[string]any, name string, value any) {
	existing, ok := children[name]
	if !ok {
		children[name] = value
		return
	}
	if slice, isSlice := existing.([]any); isSlice {
		children[name] = append(slice, value)
		return
	}
	children[name] = []any{existing, value}
}
