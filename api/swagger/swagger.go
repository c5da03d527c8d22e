package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Room Schedule API",
        "description": "Room occupancy index built from the student timetable CSV",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedule", "description": "Index lifecycle and filter options"},
        {"name": "Rooms", "description": "Room schedules, summaries and visibility"},
        {"name": "Students", "description": "Per-student hours"},
        {"name": "Interactions", "description": "Interaction log"}
    ],
    "paths": {
        "/health": {
            "get": {"summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "summary": "Readiness probe",
                "responses": {"200": {"description": "Index loaded"}, "503": {"description": "Index not loaded"}}
            }
        },
        "/schedule/status": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Schedule index status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedule/options": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Filter dropdown options",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedule/reload": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Rebuild the schedule index",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "async", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/ReloadRequest"}}
                ],
                "responses": {
                    "200": {"description": "Reloaded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "503": {"description": "Source unavailable"}
                }
            }
        },
        "/schedule/sources": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Upload a timetable CSV into the database source",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UploadSourceRequest"}}
                ],
                "responses": {"201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms with their visibility under the filter",
                "parameters": [
                    {"name": "time", "in": "query", "type": "string"},
                    {"name": "specialization", "in": "query", "type": "string"},
                    {"name": "transport", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms/export": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Export room occupancy",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/rooms/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Publish a room export snapshot",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}],
                "responses": {"201": {"description": "Signed link"}, "401": {"description": "Unauthorized"}, "503": {"description": "Index not loaded"}}
            }
        },
        "/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a published export via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired link"}, "404": {"description": "Snapshot removed"}}
            }
        },
        "/rooms/{name}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Room schedule",
                "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown room"}}
            }
        },
        "/rooms/{name}/summary": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Info panel summary of a room",
                "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown room"}}
            }
        },
        "/rooms/{name}/students": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Students of a room matching the filter",
                "parameters": [
                    {"name": "name", "in": "path", "required": true, "type": "string"},
                    {"name": "time", "in": "query", "type": "string"},
                    {"name": "specialization", "in": "query", "type": "string"},
                    {"name": "transport", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Unknown room"}}
            }
        },
        "/rooms/{name}/stats": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Specialization and transport tallies",
                "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{name}/schedule": {
            "get": {
                "tags": ["Students"],
                "summary": "Hours a student attends",
                "parameters": [{"name": "name", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/filters/stream": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Websocket stream of room visibility",
                "responses": {"101": {"description": "Switching protocols"}}
            }
        },
        "/interactions": {
            "get": {
                "tags": ["Interactions"],
                "summary": "Recent interactions and statistics",
                "parameters": [{"name": "limit", "in": "query", "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Interactions"],
                "summary": "Record an interaction",
                "parameters": [
                    {"name": "X-Client-ID", "in": "header", "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordInteractionRequest"}}
                ],
                "responses": {"202": {"description": "Accepted or dropped by the cooldown"}}
            }
        }
    },
    "definitions": {
        "ReloadRequest": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "UploadSourceRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "content": {"type": "string"},
                "reload": {"type": "boolean"}
            },
            "required": ["name", "content"]
        },
        "RecordInteractionRequest": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "type": {"type": "string"},
                "details": {"type": "string"}
            },
            "required": ["object", "type"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
