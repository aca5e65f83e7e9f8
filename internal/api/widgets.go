package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/zacaytion/fixturekit/internal/db"
)

// WidgetHandler serves the mutable widgets resource.
type WidgetHandler struct {
	store  db.Store
	logger *slog.Logger
}

// NewWidgetHandler creates a new widget handler.
func NewWidgetHandler(store db.Store, logger *slog.Logger) *WidgetHandler {
	return &WidgetHandler{store: store, logger: logger}
}

// RegisterRoutes registers all widget routes.
func (h *WidgetHandler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listWidgets",
		Method:      http.MethodGet,
		Path:        "/widgets",
		Summary:     "List widgets",
		Tags:        []string{"Widgets"},
	}, h.handleList)

	huma.Register(api, huma.Operation{
		OperationID: "getWidget",
		Method:      http.MethodGet,
		Path:        "/widgets/{id}",
		Summary:     "Get a widget",
		Tags:        []string{"Widgets"},
	}, h.handleGet)

	huma.Register(api, huma.Operation{
		OperationID:   "createWidget",
		Method:        http.MethodPost,
		Path:          "/widgets",
		Summary:       "Create a widget",
		Description:   "Creates a widget. Names are unique after NFC normalisation.",
		Tags:          []string{"Widgets"},
		DefaultStatus: http.StatusCreated,
	}, h.handleCreate)

	huma.Register(api, huma.Operation{
		OperationID: "replaceWidget",
		Method:      http.MethodPut,
		Path:        "/widgets/{id}",
		Summary:     "Replace a widget",
		Tags:        []string{"Widgets"},
	}, h.handleReplace)

	huma.Register(api, huma.Operation{
		OperationID:   "deleteWidget",
		Method:        http.MethodDelete,
		Path:          "/widgets/{id}",
		Summary:       "Delete a widget",
		Tags:          []string{"Widgets"},
		DefaultStatus: http.StatusNoContent,
	}, h.handleDelete)
}

// WidgetIDInput addresses one widget.
type WidgetIDInput struct {
	ID string `path:"id" doc:"Widget _id"`
}

// CreateWidgetInput is the request for creating a widget.
type CreateWidgetInput struct {
	Body WidgetBody
}

// ReplaceWidgetInput is the request for replacing a widget.
type ReplaceWidgetInput struct {
	ID   string `path:"id" doc:"Widget _id"`
	Body WidgetBody
}

// WidgetOutput is the response carrying one widget.
type WidgetOutput struct {
	Body WidgetDTO
}

// WidgetListOutput is the response carrying every widget.
type WidgetListOutput struct {
	Body []WidgetDTO
}

func (h *WidgetHandler) handleList(ctx context.Context, _ *struct{}) (*WidgetListOutput, error) {
	docs, err := h.store.List(ctx, ResourceWidgets)
	if err != nil {
		return nil, storeError(ctx, h.logger, "ListWidgets", err)
	}
	dtos, err := decodeDTOs[WidgetDTO](docs)
	if err != nil {
		LogDBError(ctx, h.logger, "ListWidgets", err)
		return nil, huma.Error500InternalServerError("Malformed widget document")
	}
	return &WidgetListOutput{Body: dtos}, nil
}

func (h *WidgetHandler) handleGet(ctx context.Context, input *WidgetIDInput) (*WidgetOutput, error) {
	doc, err := h.store.Get(ctx, ResourceWidgets, input.ID)
	if err != nil {
		return nil, storeError(ctx, h.logger, "GetWidget", err)
	}
	return h.output(ctx, "GetWidget", doc)
}

func (h *WidgetHandler) handleCreate(ctx context.Context, input *CreateWidgetInput) (*WidgetOutput, error) {
	name, err := validName(input.Body.Name)
	if err != nil {
		return nil, err
	}

	doc, err := h.store.Create(ctx, ResourceWidgets, input.Body.toDocument(name))
	if err != nil {
		return nil, storeError(ctx, h.logger, "CreateWidget", err)
	}
	return h.output(ctx, "CreateWidget", doc)
}

func (h *WidgetHandler) handleReplace(ctx context.Context, input *ReplaceWidgetInput) (*WidgetOutput, error) {
	name, err := validName(input.Body.Name)
	if err != nil {
		return nil, err
	}

	doc, err := h.store.Replace(ctx, ResourceWidgets, input.ID, input.Body.toDocument(name))
	if err != nil {
		return nil, storeError(ctx, h.logger, "ReplaceWidget", err)
	}
	return h.output(ctx, "ReplaceWidget", doc)
}

func (h *WidgetHandler) handleDelete(ctx context.Context, input *WidgetIDInput) (*struct{}, error) {
	if err := h.store.Delete(ctx, ResourceWidgets, input.ID); err != nil {
		return nil, storeError(ctx, h.logger, "DeleteWidget", err)
	}
	return nil, nil
}

func (h *WidgetHandler) output(ctx context.Context, operation string, doc db.Document) (*WidgetOutput, error) {
	dto, err := decodeDTO[WidgetDTO](doc)
	if err != nil {
		LogDBError(ctx, h.logger, operation, err)
		return nil, huma.Error500InternalServerError("Malformed widget document")
	}
	return &WidgetOutput{Body: dto}, nil
}

// validName normalises name and rejects it when nothing is left.
func validName(name string) (string, error) {
	name = normalizeName(name)
	if name == "" {
		return "", huma.Error422UnprocessableEntity("Name is required",
			&huma.ErrorDetail{
				Location: "body.name",
				Message:  "Name must contain non-whitespace characters",
			})
	}
	return name, nil
}
