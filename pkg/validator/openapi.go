package validator

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	apperrors "storefront-support/backend/pkg/errors"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// OpenAPIValidator checks inbound requests against the API document
type OpenAPIValidator struct {
	doc        *openapi3.T
	router     routers.Router
	schemaPath string
	mutex      sync.RWMutex
}

// NewOpenAPIValidator loads and validates the document at schemaPath
func NewOpenAPIValidator(schemaPath string) (*OpenAPIValidator, error) {
	doc, router, err := load(schemaPath)
	if err != nil {
		return nil, err
	}

	return &OpenAPIValidator{
		doc:        doc,
		router:     router,
		schemaPath: schemaPath,
	}, nil
}

func load(path string) (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load OpenAPI schema from %s: %w", path, err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, nil, fmt.Errorf("invalid OpenAPI schema: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating OpenAPI router: %w", err)
	}
	return doc, router, nil
}

// ReloadSchema re-reads the document from disk
func (v *OpenAPIValidator) ReloadSchema() error {
	doc, router, err := load(v.schemaPath)
	if err != nil {
		return err
	}

	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.doc = doc
	v.router = router
	return nil
}

// Version reports the info.version of the loaded document
func (v *OpenAPIValidator) Version() string {
	v.mutex.RLock()
	defer v.mutex.RUnlock()

	if v.doc.Info == nil {
		return ""
	}
	return v.doc.Info.Version
}

// Middleware rejects requests that do not match their documented operation.
// Paths absent from the document pass through untouched.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		v.mutex.RLock()
		router := v.router
		v.mutex.RUnlock()

		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         true,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				appErr := apperrors.NewPayloadTooLargeError(apperrors.CodePayloadTooLarge, "Request body too large").
					WithDetails(gin.H{"maxBytes": maxErr.Limit})
				c.AbortWithStatusJSON(appErr.StatusCode, apperrors.Envelope(appErr))
				return
			}
			appErr := apperrors.NewBadRequestError(apperrors.CodeValidationFailed, "Validation failed").
				WithDetails(validationDetails(err))
			c.AbortWithStatusJSON(appErr.StatusCode, apperrors.Envelope(appErr))
			return
		}

		c.Next()
	}
}

func validationDetails(err error) []string {
	var multi openapi3.MultiError
	if !errors.As(err, &multi) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(multi))
	for _, e := range multi {
		var reqErr *openapi3filter.RequestError
		if errors.As(e, &reqErr) && reqErr.Reason != "" {
			details = append(details, reqErr.Reason)
			continue
		}
		details = append(details, e.Error())
	}
	return details
}
