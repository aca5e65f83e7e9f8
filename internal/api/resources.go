package api

import "github.com/zacaytion/fixturekit/internal/db"

// Resource names served by the API. They double as table names.
const (
	ResourceWidgets    = "widgets"
	ResourceCategories = "categories"
)

// Models returns the models backing the API, in registration order.
func Models() []db.Model {
	return []db.Model{
		{
			Name: ResourceCategories,
			Indexes: []db.Index{
				{Field: "slug", Unique: true},
			},
			Immutable: true,
		},
		{
			Name: ResourceWidgets,
			Indexes: []db.Index{
				{Field: "name", Unique: true},
				{Field: "category"},
			},
		},
	}
}
