package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Meeting Assignments API",
        "description": "Generates, validates and stores weekly meeting part assignments.",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Assignments", "description": "Assignment generation, validation and storage"},
        {"name": "Metrics", "description": "Health and observability"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Metrics summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List saved assignments of a week",
                "parameters": [
                    {"name": "weekOf", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assignments/generate": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Generate a week proposal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateAssignmentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assignments/save": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Save a proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveAssignmentsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Partial or invalid proposal", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Proposal is stale or empty", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assignments/validate": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Validate assignments",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateAssignmentsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assignments/rules": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List validation rules",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string", "enum": ["qualification", "pairing", "scheduling", "distribution"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assignments/export": {
            "get": {
                "tags": ["Assignments"],
                "summary": "Export the saved week",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "weekOf", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "ProgramPartRequest": {
            "type": "object",
            "required": ["number", "title", "type"],
            "properties": {
                "number": {"type": "integer"},
                "title": {"type": "string"},
                "type": {"type": "string"},
                "durationMinutes": {"type": "integer"},
                "scene": {"type": "string"},
                "requiresAssistant": {"type": "boolean"},
                "genderRestriction": {"type": "string", "enum": ["MALE", "FEMALE"]}
            }
        },
        "GenerateAssignmentsRequest": {
            "type": "object",
            "required": ["weekOf"],
            "properties": {
                "weekOf": {"type": "string", "format": "date"},
                "parts": {"type": "array", "items": {"$ref": "#/definitions/ProgramPartRequest"}},
                "excludedStudentIds": {"type": "array", "items": {"type": "string"}},
                "preferFamilyPairs": {"type": "boolean"},
                "validate": {"type": "boolean"}
            }
        },
        "SaveAssignmentsRequest": {
            "type": "object",
            "required": ["proposalId"],
            "properties": {
                "proposalId": {"type": "string"},
                "allowPartial": {"type": "boolean"},
                "confirm": {"type": "boolean"}
            }
        },
        "AssignmentInput": {
            "type": "object",
            "required": ["studentId", "partNumber", "partType"],
            "properties": {
                "studentId": {"type": "string"},
                "assistantId": {"type": "string"},
                "partNumber": {"type": "integer"},
                "partTitle": {"type": "string"},
                "partType": {"type": "string"}
            }
        },
        "ValidateAssignmentsRequest": {
            "type": "object",
            "required": ["weekOf"],
            "properties": {
                "weekOf": {"type": "string", "format": "date"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/AssignmentInput"}}
            }
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
