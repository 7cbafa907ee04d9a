package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Idea Intake API",
        "description": "Employee idea intake, review and analytics service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Ideas", "description": "Idea submission, tracking and review lifecycle"},
        {"name": "Audit", "description": "Append-only activity trail"},
        {"name": "Analytics", "description": "Aggregate statistics"},
        {"name": "Exports", "description": "CSV/PDF downloads"},
        {"name": "Authentication", "description": "Reviewer sessions"}
    ],
    "paths": {
        "/ideas": {
            "get": {
                "tags": ["Ideas"],
                "summary": "List ideas (admin)",
                "parameters": [
                    {"name": "country", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Ideas"],
                "summary": "Submit a new idea",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateIdeaRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ideas/{id}": {
            "get": {
                "tags": ["Ideas"],
                "summary": "Track one idea by reference id",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ideas/{id}/status": {
            "patch": {
                "tags": ["Ideas"],
                "summary": "Move an idea along the review lifecycle",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ideas/{id}/review": {
            "patch": {
                "tags": ["Ideas"],
                "summary": "Edit review fields without changing status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ideas/{id}/logs": {
            "get": {
                "tags": ["Ideas"],
                "summary": "Audit trail for one idea",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit log entries",
                "parameters": [
                    {"name": "ideaId", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/analytics/ideas": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Aggregate idea statistics",
                "parameters": [
                    {"name": "country", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/ideas": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the filtered idea register",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "country", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Rendered file"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Idea": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "department": {"type": "string"},
                "country": {"type": "string"},
                "expected_benefit": {"type": "string"},
                "frequency": {"type": "string"},
                "submitter_first_name": {"type": "string"},
                "submitter_last_name": {"type": "string"},
                "submitter_email": {"type": "string"},
                "status": {"type": "string"},
                "date_submitted": {"type": "string"},
                "classification": {"type": "string"},
                "priority": {"type": "integer"},
                "admin_remarks": {"type": "string"},
                "reviewed_by": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "CreateIdeaRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "department": {"type": "string"},
                "country": {"type": "string"},
                "expected_benefit": {"type": "string"},
                "frequency": {"type": "string"},
                "submitter_first_name": {"type": "string"},
                "submitter_last_name": {"type": "string"},
                "submitter_email": {"type": "string"},
                "current_process_title": {"type": "string"},
                "current_process_problem": {"type": "string"},
                "is_manual_process": {"type": "boolean"},
                "involves_multiple_departments": {"type": "boolean"},
                "involved_departments": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title", "description", "department", "country", "expected_benefit", "frequency", "submitter_first_name", "submitter_last_name", "submitter_email"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "classification": {"type": "string"},
                "priority": {"type": "integer"},
                "remarks": {"type": "string"}
            },
            "required": ["status"]
        },
        "ReviewRequest": {
            "type": "object",
            "properties": {
                "classification": {"type": "string"},
                "priority": {"type": "integer"},
                "remarks": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "AuditLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "idea_id": {"type": "string"},
                "action": {"type": "string"},
                "performed_by": {"type": "string"},
                "performed_at": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
