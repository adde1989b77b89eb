// Package docs holds the swagger spec for the pnl-proof-host HTTP API.
// Normally regenerated by swaggo/swag from the handler annotations; kept
// hand-authored here in sync with internal/api's routes.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "consumes": [
        "application/json"
    ],
    "produces": [
        "application/json"
    ],
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/runs": {
            "post": {
                "description": "Starts a tag-discovery-through-aggregation run in the background and returns its run ID",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Trigger a run",
                "responses": {
                    "202": {"description": "Accepted"},
                    "400": {"description": "Bad Request"}
                }
            },
            "get": {
                "description": "Lists recent runs, most recently created first",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List runs",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/runs/{runId}": {
            "get": {
                "description": "Polls the status and per-swap audit trail of a run",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run status",
                "parameters": [
                    {"name": "runId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "500": {"description": "Run not found or could not be read"}
                }
            }
        },
        "/runs/{runId}/outputs": {
            "get": {
                "description": "Fetches the final six public outputs and proof bytes for a completed run",
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get run outputs",
                "parameters": [
                    {"name": "runId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Run has not completed"},
                    "500": {"description": "Run not found or could not be read"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "PnL Proof Host API",
	Description:      "Orchestrates tag discovery, per-swap proving, and recursive aggregation for confidential AMM PnL proofs",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
