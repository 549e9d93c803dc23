package api

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the local API.
func buildOpenAPIDoc(service string) map[string]any {
	if service == "" {
		service = "tooly"
	}
	jsonResponse := func(description string) map[string]any {
		return map[string]any{
			"description": description,
			"content":     map[string]any{"application/json": map[string]any{}},
		}
	}
	secured := []map[string]any{{"BearerAuth": []string{}}}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   service + " local API",
			"version": "1.0",
		},
		"paths": map[string]any{
			"/healthz": map[string]any{
				"get": map[string]any{
					"operationId": "healthz",
					"summary":     "Liveness and running script count",
					"responses":   map[string]any{"200": jsonResponse("Service is up")},
				},
			},
			"/trigger": map[string]any{
				"post": map[string]any{
					"operationId": "trigger",
					"summary":     "Dispatch a tooly:// trigger URL",
					"security":    secured,
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{
									"type":       "object",
									"required":   []string{"url"},
									"properties": map[string]any{"url": map[string]any{"type": "string"}},
								},
							},
						},
					},
					"responses": map[string]any{
						"200": jsonResponse("Trigger handled"),
						"202": jsonResponse("Script running in the background"),
						"400": jsonResponse("Malformed request or trigger"),
						"401": jsonResponse("Missing or invalid API key"),
					},
				},
			},
			"/history": map[string]any{
				"get": map[string]any{
					"operationId": "listHistory",
					"summary":     "Recent triggers, newest first",
					"security":    secured,
					"parameters": []map[string]any{{
						"name": "limit", "in": "query",
						"schema": map[string]any{"type": "integer", "minimum": 1},
					}},
					"responses": map[string]any{
						"200": jsonResponse("History entries"),
						"503": jsonResponse("History disabled"),
					},
				},
			},
			"/history/{id}": map[string]any{
				"get": map[string]any{
					"operationId": "getHistoryEntry",
					"summary":     "One trigger by ID",
					"security":    secured,
					"parameters": []map[string]any{{
						"name": "id", "in": "path", "required": true,
						"schema": map[string]any{"type": "string"},
					}},
					"responses": map[string]any{
						"200": jsonResponse("History entry"),
						"404": jsonResponse("Not found"),
					},
				},
			},
			"/events": map[string]any{
				"get": map[string]any{
					"operationId": "events",
					"summary":     "Server-sent trigger lifecycle events",
					"security":    secured,
					"parameters": []map[string]any{
						{"name": "types", "in": "query", "schema": map[string]any{"type": "string"},
							"description": "Comma-separated event types to include"},
						{"name": "Last-Event-ID", "in": "header", "schema": map[string]any{"type": "integer"},
							"description": "Resume after this event id"},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Event stream",
							"content":     map[string]any{"text/event-stream": map[string]any{}},
						},
					},
				},
			},
		},
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}
