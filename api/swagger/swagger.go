package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Clinical Logbook Review API",
        "description": "Weekly logbook review workflow for clinical training programmes",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "Logbooks", "description": "Weekly logbook read model"},
        {"name": "Workflow", "description": "Review workflow transitions"},
        {"name": "Comments", "description": "Threaded logbook feedback"},
        {"name": "Unlock", "description": "Time-boxed unlock requests"},
        {"name": "Entries", "description": "Gated practice entry updates"},
        {"name": "Dashboard", "description": "Submission timeliness"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
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
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks": {
            "get": {
                "tags": ["Logbooks"],
                "summary": "List logbooks visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "trainee_id", "in": "query", "type": "string"},
                    {"name": "week_start", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Logbooks"],
                "summary": "Open a draft logbook for a week",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLogbookRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks/{id}": {
            "get": {
                "tags": ["Logbooks"],
                "summary": "Full logbook read model",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/logbooks/{id}/audit": {
            "get": {
                "tags": ["Logbooks"],
                "summary": "Audit trail ordered by sequence",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks/{id}/submit": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Submit for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/resubmit": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Resubmit after feedback",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/claim": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Claim for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/approve": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Approve",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/reject": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Reject with a rationale",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewCommentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Empty comment"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/request-changes": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Request changes with a rationale",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviewCommentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Empty comment"},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/lock": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Lock an approved logbook",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "State conflict"}
                }
            }
        },
        "/logbooks/{id}/comments": {
            "get": {
                "tags": ["Comments"],
                "summary": "List the comment thread",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Comments"],
                "summary": "Add a comment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/comments/{id}/replies": {
            "post": {
                "tags": ["Comments"],
                "summary": "Reply to a comment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplyCommentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/logbooks/{id}/unlock-requests": {
            "post": {
                "tags": ["Unlock"],
                "summary": "Request a temporary unlock",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUnlockRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate request"}
                }
            }
        },
        "/unlock-requests/{id}/grant": {
            "post": {
                "tags": ["Unlock"],
                "summary": "Grant a pending unlock request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GrantUnlockRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already granted"}
                }
            }
        },
        "/entries/{id}": {
            "put": {
                "tags": ["Entries"],
                "summary": "Update a practice entry behind the edit gate",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEntryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "423": {"description": "Locked"}
                }
            }
        },
        "/dashboard/logbooks": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Logbooks with RAG timeliness status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateLogbookRequest": {
            "type": "object",
            "properties": {
                "week_start": {"type": "string", "description": "Monday of the week, YYYY-MM-DD"}
            },
            "required": ["week_start"]
        },
        "ReviewCommentRequest": {
            "type": "object",
            "properties": {
                "comment": {"type": "string"}
            },
            "required": ["comment"]
        },
        "CreateCommentRequest": {
            "type": "object",
            "properties": {
                "scope": {"type": "string", "enum": ["DOCUMENT", "SECTION", "RECORD"]},
                "section": {"type": "string", "enum": ["A", "B", "C"]},
                "record_id": {"type": "string"},
                "text": {"type": "string"}
            },
            "required": ["scope", "text"]
        },
        "ReplyCommentRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string"}
            },
            "required": ["text"]
        },
        "CreateUnlockRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "GrantUnlockRequest": {
            "type": "object",
            "properties": {
                "duration_minutes": {"type": "integer", "minimum": 1, "maximum": 1440}
            },
            "required": ["duration_minutes"]
        },
        "UpdateEntryRequest": {
            "type": "object",
            "properties": {
                "hours": {"type": "number"},
                "activity": {"type": "string"}
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
                "error": {"$ref": "#/definitions/APIError"}
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
