package db

import (
	"testing"

	"github.com/google/uuid"
)

func TestDocument_ID(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{"missing", Document{"name": "x"}, ""},
		{"nil", Document{IDField: nil}, ""},
		{"string", Document{IDField: "abc"}, "abc"},
		{"number", Document{IDField: 42}, "42"},
		{"float from json", Document{IDField: float64(7)}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.ID(); got != tt.want {
				t.Errorf("ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocument_Clone(t *testing.T) {
	orig := Document{
		"name": "bolt",
		"tags": []any{"a", "b"},
		"dims": map[string]any{"w": 1.0},
	}

	clone, err := orig.Clone()
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}

	clone["name"] = "nut"
	clone["tags"].([]any)[0] = "z"
	clone["dims"].(map[string]any)["w"] = 2.0

	if orig["name"] != "bolt" {
		t.Errorf("orig name mutated: %v", orig["name"])
	}
	if orig["tags"].([]any)[0] != "a" {
		t.Errorf("orig tags mutated: %v", orig["tags"])
	}
	if orig["dims"].(map[string]any)["w"] != 1.0 {
		t.Errorf("orig dims mutated: %v", orig["dims"])
	}
}

func TestDocument_CloneNil(t *testing.T) {
	var d Document
	clone, err := d.Clone()
	if err != nil || clone != nil {
		t.Errorf("Clone() of nil = %v, %v; want nil, nil", clone, err)
	}
}

func TestDocument_WithID(t *testing.T) {
	t.Run("generates uuid", func(t *testing.T) {
		orig := Document{"name": "x"}
		got := orig.WithID()
		if _, err := uuid.Parse(got.ID()); err != nil {
			t.Errorf("generated id %q is not a uuid: %v", got.ID(), err)
		}
		if _, ok := orig[IDField]; ok {
			t.Error("WithID mutated the original document")
		}
	})

	t.Run("keeps existing id as string", func(t *testing.T) {
		got := Document{IDField: 12}.WithID()
		if got[IDField] != "12" {
			t.Errorf("_id = %#v, want \"12\"", got[IDField])
		}
	})
}
