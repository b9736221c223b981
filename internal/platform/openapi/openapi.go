// Package openapi describes the HTTP API as an OpenAPI 3.0 document built
// from the routes registered on the echo instance.
package openapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
)

// Generator builds the document on every request, so routes added after it
// is created are still listed.
type Generator struct {
	routes  func() []*echo.Route
	title   string
	version string
}

func NewGenerator(routes func() []*echo.Route, title, version string) *Generator {
	return &Generator{routes: routes, title: title, version: version}
}

var summaries = map[string]string{
	http.MethodGet:    "List or read",
	http.MethodPost:   "Create or run",
	http.MethodPatch:  "Update",
	http.MethodDelete: "Delete",
}

// GenerateSpec produces the OpenAPI document as a map. Paths use OpenAPI
// templating ({id}); operations are tagged with their first path segment
// after the API prefix.
func (g *Generator) GenerateSpec() map[string]interface{} {
	paths := make(map[string]map[string]interface{})
	tags := map[string]bool{}

	for _, r := range g.routes() {
		if _, ok := summaries[r.Method]; !ok || strings.HasSuffix(r.Path, "/*") {
			continue
		}
		path, params := templatePath(r.Path)
		tag := tagFor(r.Path)
		tags[tag] = true

		op := map[string]interface{}{
			"summary":     summaries[r.Method] + " " + strings.TrimPrefix(path, "/api/v1"),
			"operationId": strings.ToLower(r.Method) + operationSuffix(path),
			"tags":        []string{tag},
			"responses":   responsesFor(r.Method),
		}
		if len(params) > 0 {
			list := make([]map[string]interface{}, 0, len(params))
			for _, p := range params {
				list = append(list, map[string]interface{}{
					"name": p, "in": "path", "required": true,
					"schema": map[string]string{"type": "string", "format": "uuid"},
				})
			}
			op["parameters"] = list
		}
		if r.Method == http.MethodPost || r.Method == http.MethodPatch {
			op["requestBody"] = map[string]interface{}{
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]string{"type": "object"},
					},
				},
			}
		}
		if paths[path] == nil {
			paths[path] = map[string]interface{}{}
		}
		paths[path][strings.ToLower(r.Method)] = op
	}

	tagNames := make([]string, 0, len(tags))
	for t := range tags {
		tagNames = append(tagNames, t)
	}
	sort.Strings(tagNames)
	tagList := make([]map[string]string, 0, len(tagNames))
	for _, t := range tagNames {
		tagList = append(tagList, map[string]string{"name": t})
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":   g.title,
			"version": g.version,
		},
		"tags":  tagList,
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"message": map[string]string{"type": "string"},
					},
				},
			},
		},
	}
}

// templatePath turns /patients/:id into /patients/{id} and returns the
// parameter names in order.
func templatePath(p string) (string, []string) {
	segs := strings.Split(p, "/")
	var params []string
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			name := s[1:]
			params = append(params, name)
			segs[i] = "{" + name + "}"
		}
	}
	return strings.Join(segs, "/"), params
}

func tagFor(p string) string {
	rest := strings.TrimPrefix(p, "/api/v1")
	for _, s := range strings.Split(rest, "/") {
		if s != "" && !strings.HasPrefix(s, ":") {
			return s
		}
	}
	return "root"
}

func operationSuffix(path string) string {
	var b strings.Builder
	for _, s := range strings.Split(strings.TrimPrefix(path, "/api/v1"), "/") {
		s = strings.Trim(s, "{}")
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '.' || r == '_' }) {
			b.WriteString(strings.ToUpper(part[:1]) + part[1:])
		}
	}
	return b.String()
}

func responsesFor(method string) map[string]interface{} {
	errRef := map[string]interface{}{
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"$ref": "#/components/schemas/Error"},
			},
		},
	}
	with := func(desc string) map[string]interface{} {
		out := map[string]interface{}{"description": desc}
		for k, v := range errRef {
			out[k] = v
		}
		return out
	}

	resp := map[string]interface{}{
		"400": with("Invalid request"),
		"404": with("Not found"),
		"502": with("Backend failure"),
	}
	switch method {
	case http.MethodPost:
		resp["201"] = map[string]interface{}{"description": "Created"}
		resp["200"] = map[string]interface{}{"description": "Success"}
	case http.MethodDelete:
		resp["204"] = map[string]interface{}{"description": "Deleted"}
	default:
		resp["200"] = map[string]interface{}{"description": "Success"}
	}
	return resp
}

// RegisterRoutes serves the document at /openapi.json.
func (g *Generator) RegisterRoutes(apiGroup *echo.Group) {
	apiGroup.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
