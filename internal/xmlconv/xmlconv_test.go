package xmlconv_test

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"syndicate/internal/services"
	"syndicate/internal/xmlconv"
)

func TestToXMLStableOutput(t *testing.T) {
	doc := map[string]any{
		"Title": "Syndication Sampler",
		"Cast": map[string]any{
			"Lead":    "A. Performer",
			"Support": "B. Performer",
		},
		"Genres": []any{"Documentary", "Short"},
	}

	first, err := xmlconv.ToXML(doc)
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	second, err := xmlconv.ToXML(doc)
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	if first != second {
		t.Fatal("expected deterministic output")
	}

	want := "" +
		"<Cast>\n" +
		"    <Lead>A. Performer</Lead>\n" +
		"    <Support>B. Performer</Support>\n" +
		"</Cast>\n" +
		"<Genres>Documentary</Genres>\n" +
		"<Genres>Short</Genres>\n" +
		"<Title>Syndication Sampler</Title>\n"
	if first != want {
		t.Fatalf("unexpected serialization:\n%s\nwant:\n%s", first, want)
	}
}

func TestRoundTripPreservesStructure(t *testing.T) {
	raw := `{
		"Title": "Syndication Sampler",
		"Release": {
			"Territory": "DE",
			"Windows": [
				{"Start": "2026-01-01", "End": "2026-06-30"},
				{"Start": "2026-07-01", "End": "2026-12-31"}
			]
		},
		"Tags": ["a", "b", "c"]
	}`
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}

	serialized, err := xmlconv.ToXML(doc)
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	parsed, err := xmlconv.FromXML(serialized)
	if err != nil {
		t.Fatalf("FromXML: %v", err)
	}

	if !reflect.DeepEqual(parsed, doc) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", parsed, doc)
	}
}

func TestToXMLEscapesText(t *testing.T) {
	serialized, err := xmlconv.ToXML(map[string]any{"Note": "a < b & c"})
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	if !strings.Contains(serialized, "a &lt; b &amp; c") {
		t.Fatalf("text not escaped: %s", serialized)
	}

	parsed, err := xmlconv.FromXML(serialized)
	if err != nil {
		t.Fatalf("FromXML: %v", err)
	}
	if parsed["Note"] != "a < b & c" {
		t.Fatalf("escaped text did not round trip: %#v", parsed)
	}
}

func TestToXMLRejectsInvalidNames(t *testing.T) {
	cases := []string{"", "1leading", "has space", "br<ck"}
	for _, name := range cases {
		if _, err := xmlconv.ToXML(map[string]any{name: "x"}); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", name, err)
		}
	}
}

func TestFromXMLRejectsMalformed(t *testing.T) {
	if _, err := xmlconv.FromXML("<Open>"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestScalarFormatting(t *testing.T) {
	serialized, err := xmlconv.ToXML(map[string]any{
		"Count":   float64(12),
		"Ratio":   1.5,
		"Enabled": true,
	})
	if err != nil {
		t.Fatalf("ToXML: %v", err)
	}
	for _, want := range []string{"<Count>12</Count>", "<Ratio>1.5</Ratio>", "<Enabled>true</Enabled>"} {
		if !strings.Contains(serialized, want) {
			t.Fatalf("missing %s in:\n%s", want, serialized)
		}
	}
}
