// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/analyze": {
            "post": {
                "description": "Runs every enabled provider and returns the composite report. Provider failures are reported inside the report, never as an HTTP error.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analyse one domain",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.AnalyzeRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.DomainReport"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}}
                }
            }
        },
        "/analyze/batch": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["analysis"],
                "summary": "Analyse several domains",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.BatchRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.DomainReport"}}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}}
                }
            }
        },
        "/domains": {
            "get": {
                "produces": ["application/json"],
                "tags": ["domains"],
                "summary": "List domains",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Domain"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["domains"],
                "summary": "Register a domain",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.CreateDomainRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Domain"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "409": {"description": "Conflict", "schema": {"type": "string"}}
                }
            }
        },
        "/domains/{id}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["domains"],
                "summary": "Delete a domain with its monitors and reports",
                "parameters": [{"type": "integer", "description": "Domain ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "integer"}}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        },
        "/domains/{id}/reports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "List stored reports of a domain, newest first",
                "parameters": [
                    {"type": "integer", "description": "Domain ID", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "description": "Maximum number of reports", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.StoredReport"}}}}
            }
        },
        "/domains/{id}/reports/latest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Latest stored report of a domain",
                "parameters": [{"type": "integer", "description": "Domain ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StoredReport"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        },
        "/domains/{id}/monitors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["monitors"],
                "summary": "List monitors of a domain",
                "parameters": [{"type": "integer", "description": "Domain ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Monitor"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["monitors"],
                "summary": "Schedule periodic analysis of a domain",
                "parameters": [
                    {"type": "integer", "description": "Domain ID", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/api.CreateMonitorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Monitor"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        },
        "/monitors/{id}": {
            "delete": {
                "tags": ["monitors"],
                "summary": "Delete a monitor",
                "parameters": [{"type": "integer", "description": "Monitor ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Stored report by ID",
                "parameters": [{"type": "integer", "description": "Report ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.StoredReport"}},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "List notification settings",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.NotificationSettings"}}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Add a Telegram or Slack notification target",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/models.NotificationSettings"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.NotificationSettings"}},
                    "400": {"description": "Bad Request", "schema": {"type": "string"}}
                }
            }
        },
        "/notifications/{id}": {
            "delete": {
                "tags": ["notifications"],
                "summary": "Delete notification settings",
                "parameters": [{"type": "integer", "description": "Settings ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "api.AnalyzeRequest": {
            "type": "object",
            "properties": {
                "domain": {"type": "string", "example": "se1gym.co.uk"},
                "url": {"type": "string", "example": "https://se1gym.co.uk/"}
            }
        },
        "api.BatchRequest": {
            "type": "object",
            "properties": {
                "concurrency": {"type": "integer", "example": 4},
                "targets": {"type": "array", "items": {"$ref": "#/definitions/api.AnalyzeRequest"}}
            }
        },
        "api.CreateDomainRequest": {
            "type": "object",
            "properties": {"name": {"type": "string", "example": "example.com"}}
        },
        "api.CreateMonitorRequest": {
            "type": "object",
            "properties": {
                "enabled": {"type": "boolean", "example": true},
                "interval_seconds": {"type": "integer", "example": 3600},
                "url": {"type": "string", "example": "https://example.com"}
            }
        },
        "models.Domain": {
            "type": "object",
            "properties": {
                "id": {"type": "integer", "example": 1},
                "name": {"type": "string", "example": "example.com"}
            }
        },
        "models.Monitor": {
            "type": "object",
            "properties": {
                "domain_id": {"type": "integer", "example": 1},
                "enabled": {"type": "boolean", "example": true},
                "id": {"type": "integer", "example": 1},
                "interval_seconds": {"type": "integer", "example": 3600},
                "url": {"type": "string", "example": "https://example.com"}
            }
        },
        "models.NotificationSettings": {
            "type": "object",
            "properties": {
                "chat_id": {"type": "string", "example": "-1001234567890"},
                "enabled": {"type": "boolean", "example": true},
                "id": {"type": "integer", "example": 1},
                "notify_on_failure": {"type": "boolean", "example": true},
                "notify_on_success": {"type": "boolean", "example": false},
                "token": {"type": "string"},
                "type": {"type": "string", "example": "telegram"},
                "webhook_url": {"type": "string", "example": "https://hooks.slack.com/services/..."}
            }
        },
        "models.Summary": {
            "type": "object",
            "properties": {
                "analysisDuration": {"type": "integer"},
                "analysisTimestamp": {"type": "string"},
                "servicesCompleted": {"type": "integer"},
                "totalErrors": {"type": "integer"}
            }
        },
        "models.DomainReport": {
            "type": "object",
            "properties": {
                "domain": {"type": "string"},
                "id": {"type": "string"},
                "pageSpeed": {"type": "object"},
                "summary": {"$ref": "#/definitions/models.Summary"},
                "timestamp": {"type": "string"},
                "trustAndCRO": {"type": "object"},
                "uptime": {"type": "object"},
                "url": {"type": "string"},
                "whois": {"type": "object"}
            }
        },
        "models.StoredReport": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string", "example": "2024-01-01T12:00:00Z"},
                "domain_id": {"type": "integer", "example": 1},
                "duration_ms": {"type": "integer", "example": 8421},
                "id": {"type": "integer", "example": 1},
                "report": {"$ref": "#/definitions/models.DomainReport"},
                "report_id": {"type": "string"},
                "services_completed": {"type": "integer", "example": 4},
                "total_errors": {"type": "integer", "example": 1}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "DomainReport API",
	Description:      "REST API for composite domain reports: page speed, WHOIS, trust and uptime.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
