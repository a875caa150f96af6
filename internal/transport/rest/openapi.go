package rest

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the API document after checking it is a valid
// OpenAPI 3 description.
type OpenAPIHandler struct {
	raw []byte
	doc *openapi3.T
}

func NewOpenAPIHandler(path string) (*OpenAPIHandler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read openapi document: %w", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	return &OpenAPIHandler{raw: raw, doc: doc}, nil
}

// Document exposes the parsed description.
func (h *OpenAPIHandler) Document() *openapi3.T {
	return h.doc
}

func (h *OpenAPIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(h.raw)
}
