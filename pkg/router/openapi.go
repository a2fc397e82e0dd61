package router

import (
	"os"
	"path/filepath"

	"storefront-support/backend/pkg/validator"
)

// AddOpenAPIValidation validates requests against the schema and serves the
// schema under /api/docs. A missing or broken schema disables validation.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if !fileExists(schemaPath) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.LogError(err, "Failed to initialize OpenAPI validator", "path", schemaPath)
		return
	}

	r.Validator = v
	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath, "version", v.Version())

	r.Engine.StaticFile("/api/docs/"+filepath.Base(schemaPath), schemaPath)
}

// ReloadSchema re-reads the OpenAPI schema. It is a no-op when validation is off.
func (r *Router) ReloadSchema() error {
	if r.Validator == nil {
		return nil
	}
	if err := r.Validator.ReloadSchema(); err != nil {
		return err
	}
	r.Logger.Info("OpenAPI schema reloaded", "version", r.Validator.Version())
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
