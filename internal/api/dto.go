package api

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/zacaytion/fixturekit/internal/db"
)

// WidgetDTO represents a widget in API responses.
type WidgetDTO struct {
	ID       string   `json:"_id"`
	Name     string   `json:"name"`
	Color    string   `json:"color,omitempty"`
	Size     float64  `json:"size,omitempty"`
	Category string   `json:"category,omitempty" doc:"_id of the widget's category"`
	Tags     []string `json:"tags,omitempty"`
}

// WidgetBody is the request body for creating or replacing a widget.
type WidgetBody struct {
	ID       string   `json:"_id,omitempty" maxLength:"255" doc:"Optional client-chosen id; ignored on replace"`
	Name     string   `json:"name" minLength:"1" maxLength:"255" doc:"Widget name, unique after NFC normalisation"`
	Color    string   `json:"color,omitempty" maxLength:"64"`
	Size     float64  `json:"size,omitempty" minimum:"0"`
	Category string   `json:"category,omitempty" doc:"_id of the widget's category"`
	Tags     []string `json:"tags,omitempty"`
}

// toDocument builds the stored form of the body. The name must already be normalised.
func (b WidgetBody) toDocument(name string) db.Document {
	doc := db.Document{"name": name}
	if b.ID != "" {
		doc[db.IDField] = b.ID
	}
	if b.Color != "" {
		doc["color"] = b.Color
	}
	if b.Size != 0 {
		doc["size"] = b.Size
	}
	if b.Category != "" {
		doc["category"] = b.Category
	}
	if len(b.Tags) > 0 {
		tags := make([]any, len(b.Tags))
		for i, tag := range b.Tags {
			tags[i] = tag
		}
		doc["tags"] = tags
	}
	return doc
}

// CategoryDTO represents a category in API responses.
type CategoryDTO struct {
	ID     string `json:"_id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty" doc:"_id of the parent category"`
}

// normalizeName trims and NFC-normalises a display name so that visually
// identical names collide on the unique index.
func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// decodeDTO decodes a stored document into a DTO using its json tags. Fields the
// DTO does not know are ignored; scalars are coerced weakly.
func decodeDTO[T any](doc db.Document) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(map[string]any(doc)); err != nil {
		return out, fmt.Errorf("decode %s document: %w", doc.ID(), err)
	}
	return out, nil
}

func decodeDTOs[T any](docs []db.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		dto, err := decodeDTO[T](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}
