package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"linkshell/internal/core/version"
	"linkshell/internal/platform/config"
	perr "linkshell/internal/platform/errors"
)

// SpecMutator lets modules tweak the generated spec before it is served
type SpecMutator func(map[string]any)

var mutators []SpecMutator

// Register adds a spec mutator. Call it while wiring modules, before serving
func Register(m SpecMutator) {
	if m != nil {
		mutators = append(mutators, m)
	}
}

// serveDocJSON walks the router on every request and serves the resulting spec
func serveDocJSON(mux http.Handler, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		routes, ok := mux.(chi.Routes)
		if !ok {
			http.Error(w, "route table unavailable", http.StatusInternalServerError)
			return
		}
		spec, err := buildSpec(routes, base)
		if err != nil {
			http.Error(w, "spec build error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

func buildSpec(routes chi.Routes, base string) (map[string]any, error) {
	title := "Linkshell API"
	if v := config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", ""); v != "" {
		title += " " + v
	}
	paths := map[string]any{}
	spec := map[string]any{
		"info": map[string]any{
			"title":   title,
			"version": version.Info().Version,
		},
		"paths": paths,
	}

	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, base+"/") || strings.HasSuffix(route, "*") {
			return nil
		}
		path, params := openAPIPath(strings.TrimPrefix(route, base))
		node, ok := paths[path].(map[string]any)
		if !ok {
			node = map[string]any{}
			paths[path] = node
		}
		node[strings.ToLower(method)] = operation(method, path, params)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ensureServers(spec, base)
	ensureSchemas(spec)
	addDefaultError(spec)
	addDefaultBadRequest(spec)
	for _, m := range mutators {
		m(spec)
	}
	return spec, nil
}

// openAPIPath turns a chi pattern into an OpenAPI path and lists its parameters
// "/messages/{id:[0-9]+}/" -> "/messages/{id}", [id]
func openAPIPath(route string) (string, []string) {
	route = strings.TrimSuffix(route, "/")
	if route == "" {
		return "/", nil
	}
	var params []string
	segs := strings.Split(route, "/")
	for i, s := range segs {
		if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
		if j := strings.IndexByte(name, ':'); j >= 0 {
			name = name[:j]
		}
		segs[i] = "{" + name + "}"
		params = append(params, name)
	}
	return strings.Join(segs, "/"), params
}

func operation(method, path string, params []string) map[string]any {
	words := []string{strings.ToLower(method)}
	for _, s := range strings.Split(strings.Trim(path, "/"), "/") {
		s = strings.Trim(s, "{}")
		if s == "" {
			continue
		}
		words = append(words, strings.ToUpper(s[:1])+s[1:])
	}
	tag := "meta"
	if seg := strings.Split(strings.Trim(path, "/"), "/"); len(seg) > 1 && seg[0] != "" {
		tag = seg[0]
	}

	op := map[string]any{
		"operationId": strings.Join(words, ""),
		"tags":        []any{tag},
		"responses": map[string]any{
			"200": map[string]any{
				"description": "OK",
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{"$ref": "#/components/schemas/Envelope"},
					},
				},
			},
		},
	}
	if len(params) > 0 {
		ps := make([]any, 0, len(params))
		for _, p := range params {
			ps = append(ps, map[string]any{
				"name":     p,
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			})
		}
		op["parameters"] = ps
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		op["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{"schema": map[string]any{"type": "object"}},
			},
		}
	}
	return op
}

// ensureServers pins the spec to OAS 3.0.3, which swagger ui renders, and sets the base url
func ensureServers(spec map[string]any, url string) {
	delete(spec, "swagger")
	spec["openapi"] = "3.0.3"
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// ensureSchemas adds the response envelope models. They mirror phttp.Envelope
func ensureSchemas(spec map[string]any) {
	comps, ok := spec["components"].(map[string]any)
	if !ok {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, ok := comps["schemas"].(map[string]any)
	if !ok {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["Envelope"]; !ok {
		schemas["Envelope"] = map[string]any{
			"type":        "object",
			"description": "Standard success response",
			"properties": map[string]any{
				"status_code": map[string]any{"type": "integer", "format": "int32"},
				"status":      map[string]any{"type": "string"},
				"request_id":  map[string]any{"type": "string"},
				"data":        map[string]any{},
			},
			"required": []any{"status_code", "status"},
		}
	}
	if _, ok := schemas["ErrorResponse"]; !ok {
		schemas["ErrorResponse"] = map[string]any{
			"type":        "object",
			"description": "Standard error response",
			"properties": map[string]any{
				"status_code": map[string]any{"type": "integer", "format": "int32"},
				"status":      map[string]any{"type": "string"},
				"code":        map[string]any{"type": "integer", "format": "int32"},
				"error":       map[string]any{"type": "string"},
				"request_id":  map[string]any{"type": "string"},
			},
			"required": []any{"status_code", "status"},
		}
	}
}

func errorResponse(desc string, status int, code perr.ErrorCode, msg string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
				"example": map[string]any{
					"status_code": status,
					"status":      http.StatusText(status),
					"code":        int(code),
					"error":       msg,
					"request_id":  "linkshell/abc-000001",
				},
			},
		},
	}
}

// addDefaultError gives every operation a 500 if it has none
func addDefaultError(spec map[string]any) {
	eachResponses(spec, "500", errorResponse("Internal Server Error",
		http.StatusInternalServerError, perr.ErrorCodePanic, "panic recovered"))
}

// addDefaultBadRequest gives every operation a 400 shaped like the binder output
func addDefaultBadRequest(spec map[string]any) {
	eachResponses(spec, "400", errorResponse("Bad Request",
		http.StatusBadRequest, perr.ErrorCodeValidation, "target_lang must be a valid language tag"))
}

func eachResponses(spec map[string]any, status string, resp map[string]any) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, opAny := range node {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			resps, ok := op["responses"].(map[string]any)
			if !ok {
				resps = map[string]any{}
				op["responses"] = resps
			}
			if _, exists := resps[status]; !exists {
				resps[status] = resp
			}
		}
	}
}
