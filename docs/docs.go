// Package docs ships the OpenAPI description of the JSON API.
package docs

import _ "embed"

//go:embed openapi.yml
var OpenAPI []byte
