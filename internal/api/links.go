package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/criteria>; rel="criteria"`,
		`</api/v1/stats>; rel="stats"`,
		`</api/v1/features>; rel="features"`,
		`</api/v1/layers>; rel="layers"`,
		`</openapi.json>; rel="service-desc"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/sources>; rel="sources"`,
	},
	"/api/v1/criteria": {
		`</api/v1/criteria/reset>; rel="reset"`,
		`</api/v1/stats>; rel="stats"`,
		`</api/v1/features>; rel="features"`,
	},
	"/api/v1/criteria/{selector}": {
		`</api/v1/criteria>; rel="collection"`,
		`</api/v1/features>; rel="features"`,
	},
	"/api/v1/stats": {
		`</api/v1/criteria>; rel="criteria"`,
		`</api/v1/summary>; rel="summary"`,
	},
	"/api/v1/features": {
		`</api/v1/boundary>; rel="boundary"`,
		`</api/v1/buffer>; rel="buffer"`,
		`</api/v1/stats>; rel="stats"`,
	},
	"/api/v1/features/{id}": {
		`</api/v1/features>; rel="collection"`,
	},
	"/api/v1/layers": {
		`</api/v1/features>; rel="points"`,
		`</api/v1/boundary>; rel="boundary"`,
		`</api/v1/buffer>; rel="buffer"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="search"`,
		`</api/v1/summary>; rel="summary"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
