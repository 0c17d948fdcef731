package httpadapter

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

//go:embed openapi.yaml
var openapiSpec []byte

// LoadAPISpec parses and validates the embedded OpenAPI document. It runs at
// startup so a malformed contract fails the boot, not a request.
func LoadAPISpec() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
}

func newContractRouter() (routers.Router, error) {
	doc, err := LoadAPISpec()
	if err != nil {
		return nil, err
	}
	return gorillamux.NewRouter(doc)
}

// contractMiddleware rejects requests whose shape does not match the embedded
// contract before they reach a handler. Routes the document does not describe
// pass through untouched; the validator restores the body it reads.
func contractMiddleware(next http.Handler, contract routers.Router) http.Handler {
	if contract == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := contract.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "request does not match the api contract"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
