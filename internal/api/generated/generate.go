package generated

// api.gen.go генерируется oapi-codegen из internal/api/openapi/openapi.yaml.
//go:generate oapi-codegen --config=oapi-codegen.yaml ../openapi/openapi.yaml
