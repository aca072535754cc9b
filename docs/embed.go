// Package docs ships the campaign-api OpenAPI document and the Swagger UI page
// that renders it.
package docs

import _ "embed"

// CampaignOpenAPI is served at /docs/campaign-api/openapi.yaml.
//
//go:embed campaign-api.openapi.yaml
var CampaignOpenAPI []byte

// CampaignSwaggerHTML is served at /docs.
//
//go:embed swagger.html
var CampaignSwaggerHTML []byte
