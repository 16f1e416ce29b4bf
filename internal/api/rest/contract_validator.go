package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// ContractValidator checks requests and responses against the OpenAPI
// document.
type ContractValidator struct {
	doc    *openapi3.T
	router routers.Router
}

func NewContractValidator(doc *openapi3.T) (*ContractValidator, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}
	return &ContractValidator{doc: doc, router: router}, nil
}

func (cv *ContractValidator) ValidateRequest(ctx context.Context, req *http.Request) error {
	route, pathParams, err := cv.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no matching route found: %w", err)
	}
	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	}
	if err := openapi3filter.ValidateRequest(ctx, input); err != nil {
		return fmt.Errorf("request validation failed: %w", err)
	}
	return nil
}

// ValidateResponse checks status, headers and body. body is the raw
// response payload.
func (cv *ContractValidator) ValidateResponse(ctx context.Context, req *http.Request, status int, header http.Header, body []byte) error {
	route, pathParams, err := cv.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("no matching route found: %w", err)
	}
	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: pathParams,
			Route:      route,
		},
		Status: status,
		Header: header,
	}
	input.SetBodyBytes(body)
	if err := openapi3filter.ValidateResponse(ctx, input); err != nil {
		return fmt.Errorf("response validation failed: %w", err)
	}
	return nil
}

// Operation returns the documented operation matching req.
func (cv *ContractValidator) Operation(req *http.Request) (*openapi3.Operation, error) {
	route, _, err := cv.router.FindRoute(req)
	if err != nil {
		return nil, fmt.Errorf("no matching route found: %w", err)
	}
	return route.Operation, nil
}
