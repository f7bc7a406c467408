package rag

import (
	"reflect"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestPayloadString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		in     *qdrant.Value
		want   string
		wantOK bool
	}{
		{"string", qdrant.NewValueString("Article 14"), "Article 14", true},
		{"integer page", qdrant.NewValueInt(4), "4", true},
		{"whole double", qdrant.NewValueDouble(3), "3", true},
		{"fractional double", qdrant.NewValueDouble(2.5), "2.5", true},
		{"bool", qdrant.NewValueBool(false), "false", true},
		{"null", qdrant.NewValueNull(), "", false},
		{"list", qdrant.NewValueFromList(qdrant.NewValueString("a")), "", false},
	}
	for _, tc := range cases {
		got, ok := payloadString(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", tc.name, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestPointPayload_ReservedKeysWin(t *testing.T) {
	t.Parallel()

	doc := Document{
		ID:      "6f1c1c4e-3b9a-4a8e-9f57-0c1d2e3f4a5b",
		Content: "Every person shall be equal before the law.",
		Source:  "constitution.pdf",
		Metadata: map[string]string{
			"title":   "Constitution of India",
			"page":    "4",
			"content": "overwritten by metadata",
			"source":  "spoofed.pdf",
		},
	}

	got := pointPayload(doc)
	want := map[string]any{
		"title":   "Constitution of India",
		"page":    "4",
		"content": "Every person shall be equal before the law.",
		"source":  "constitution.pdf",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pointPayload = %v, want %v", got, want)
	}
	if doc.Metadata["source"] != "spoofed.pdf" {
		t.Error("pointPayload must not mutate the document metadata")
	}
}

func TestDocumentFromPayload(t *testing.T) {
	t.Parallel()

	payload := map[string]*qdrant.Value{
		"content": qdrant.NewValueString("Punishment for murder."),
		"source":  qdrant.NewValueString("bns.pdf"),
		"title":   qdrant.NewValueString("Bharatiya Nyaya Sanhita, 2023"),
		"page":    qdrant.NewValueInt(4),
		"section": qdrant.NewValueString("Section 103"),
		"tags":    qdrant.NewValueFromList(qdrant.NewValueString("criminal")),
	}

	doc := documentFromPayload("id-1", 0.82, payload)

	if doc.ID != "id-1" || doc.Score != 0.82 {
		t.Errorf("id/score = %q/%v", doc.ID, doc.Score)
	}
	if doc.Content != "Punishment for murder." || doc.Source != "bns.pdf" {
		t.Errorf("content/source = %q/%q", doc.Content, doc.Source)
	}
	wantMeta := map[string]string{
		"title":   "Bharatiya Nyaya Sanhita, 2023",
		"page":    "4",
		"section": "Section 103",
	}
	if !reflect.DeepEqual(doc.Metadata, wantMeta) {
		t.Errorf("metadata = %v, want %v", doc.Metadata, wantMeta)
	}
}

func TestDocumentFromPayload_RoundTripsPointPayload(t *testing.T) {
	t.Parallel()

	in := Document{
		ID:       "id-2",
		Content:  "Anticipatory bail.",
		Source:   "bnss.pdf",
		Metadata: map[string]string{"section": "Section 482"},
	}
	out := documentFromPayload(in.ID, 0, qdrant.NewValueMap(pointPayload(in)))
	if !reflect.DeepEqual(in, out) {
		t.Errorf("got %+v, want %+v", out, in)
	}
}
