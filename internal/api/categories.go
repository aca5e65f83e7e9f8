package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zacaytion/fixturekit/internal/db"
)

// CategoryHandler serves the immutable categories resource. Categories are
// seeded from fixtures; there is no create route, replacements are rejected
// up front and deletes are refused by the store.
type CategoryHandler struct {
	store  db.Store
	logger *slog.Logger
}

// NewCategoryHandler creates a new category handler.
func NewCategoryHandler(store db.Store, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{store: store, logger: logger}
}

// RegisterRoutes registers all category routes. POST is deliberately absent so
// the mux answers it with 405.
func (h *CategoryHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
		Tags:        []string{"Categories"},
	}, h.handleList)

	huma.Register(api, huma.Operation{
		OperationID: "getCategory",
		Method:      http.MethodGet,
		Path:        "/categories/{id}",
		Summary:     "Get a category",
		Tags:        []string{"Categories"},
	}, h.handleGet)

	huma.Register(api, huma.Operation{
		OperationID: "replaceCategory",
		Method:      http.MethodPut,
		Path:        "/categories/{id}",
		Summary:     "Replace a category",
		Description: "Always fails: categories cannot be changed once created.",
		Tags:        []string{"Categories"},
		Errors:      []int{http.StatusBadRequest},
	}, h.handleReplace)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteCategory",
		Method:        http.MethodDelete,
		Path:          "/categories/{id}",
		Summary:       "Delete a category",
		Description:   "Always fails: the store refuses deletes on categories.",
		Tags:          []string{"Categories"},
		DefaultStatus: http.StatusNoContent,
	}, h.handleDelete)
}

// CategoryIDInput addresses one category.
type CategoryIDInput struct {
	ID string `path:"id" doc:"Category _id"`
}

// ReplaceCategoryInput accepts any body; it is never applied.
type ReplaceCategoryInput struct {
	ID      string `path:"id" doc:"Category _id"`
	RawBody []byte
}

// CategoryOutput is the response carrying one category.
type CategoryOutput struct {
	Body CategoryDTO
}

// CategoryListOutput is the response carrying every category.
type CategoryListOutput struct {
	Body []CategoryDTO
}

func (h *CategoryHandler) handleList(ctx context.Context, _ *struct{}) (*CategoryListOutput, error) {
	docs, err := h.store.List(ctx, ResourceCategories)
	if err != nil {
		return nil, storeError(ctx, h.logger, "ListCategories", err)
	}
	dtos, err := decodeDTOs[CategoryDTO](docs)
	if err != nil {
		LogDBError(ctx, h.logger, "ListCategories", err)
		return nil, huma.Error500InternalServerError("Malformed category document")
	}
	return &CategoryListOutput{Body: dtos}, nil
}

func (h *CategoryHandler) handleGet(ctx context.Context, input *CategoryIDInput) (*CategoryOutput, error) {
	doc, err := h.store.Get(ctx, ResourceCategories, input.ID)
	if err != nil {
		return nil, storeError(ctx, h.logger, "GetCategory", err)
	}
	dto, err := decodeDTO[CategoryDTO](doc)
	if err != nil {
		LogDBError(ctx, h.logger, "GetCategory", err)
		return nil, huma.Error500InternalServerError("Malformed category document")
	}
	return &CategoryOutput{Body: dto}, nil
}

func (h *CategoryHandler) handleReplace(_ context.Context, input *ReplaceCategoryInput) (*CategoryOutput, error) {
	return nil, huma.Error400BadRequest("Categories are immutable",
		&huma.ErrorDetail{
			Location: "path.id",
			Message:  "Category cannot be replaced",
			Value:    input.ID,
		})
}

func (h *CategoryHandler) handleDelete(ctx context.Context, input *CategoryIDInput) (*struct{}, error) {
	if err := h.store.Delete(ctx, ResourceCategories, input.ID); err != nil {
		return nil, storeError(ctx, h.logger, "DeleteCategory", err)
	}
	return nil, nil
}
