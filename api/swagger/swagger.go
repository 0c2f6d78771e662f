package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Admissions API",
        "description": "Admissions workflow engine for the school management system",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Admissions", "description": "Application intake and stage pipeline"},
        {"name": "Exports", "description": "Register and offer letter downloads"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/admissions": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Submit a new admission application",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitApplicationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/queue": {
            "get": {
                "tags": ["Admissions"],
                "summary": "List the FIFO queue for one stage",
                "parameters": [
                    {"name": "stage", "in": "query", "type": "string", "required": true},
                    {"name": "grade", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/summary": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Dashboard counts of applications per pipeline bucket",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/register.csv": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the admissions register as CSV",
                "parameters": [
                    {"name": "stage", "in": "query", "type": "string"},
                    {"name": "grade", "in": "query", "type": "string"}
                ],
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV payload"}
                }
            }
        },
        "/admissions/documents/download": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Download a stored document using a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "Document bytes"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/admissions/{id}": {
            "get": {
                "tags": ["Admissions"],
                "summary": "Get one application with documents and stage history",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/advance": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Advance an application to a new pipeline stage",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AdvanceStageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/documents": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Upload a supporting document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "type", "in": "formData", "type": "string", "required": true},
                    {"name": "notes", "in": "formData", "type": "string"},
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admissions/{id}/documents/{type}/verify": {
            "post": {
                "tags": ["Admissions"],
                "summary": "Mark an uploaded document as verified",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "type", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Verified"},
                    "404": {"description": "No matching unverified document"}
                }
            }
        },
        "/admissions/{id}/offer-letter": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download the placement offer letter as PDF",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "produces": ["application/pdf"],
                "responses": {
                    "200": {"description": "PDF payload"},
                    "409": {"description": "No placement offer recorded"}
                }
            }
        }
    },
    "definitions": {
        "SubmitApplicationRequest": {
            "type": "object",
            "properties": {
                "applicant": {
                    "type": "object",
                    "properties": {
                        "firstName": {"type": "string"},
                        "lastName": {"type": "string"},
                        "dateOfBirth": {"type": "string", "format": "date"},
                        "gender": {"type": "string"},
                        "gradeApplying": {"type": "string"},
                        "previousSchool": {"type": "string"},
                        "applicationType": {"type": "string", "enum": ["new", "transfer", "returning"]}
                    }
                },
                "guardian": {
                    "type": "object",
                    "properties": {
                        "guardianRef": {"type": "string"},
                        "name": {"type": "string"},
                        "phone": {"type": "string"},
                        "phoneAlt": {"type": "string"},
                        "email": {"type": "string"},
                        "relationship": {"type": "string"},
                        "idNumber": {"type": "string"}
                    }
                },
                "sponsored": {"type": "boolean"}
            }
        },
        "AdvanceStageRequest": {
            "type": "object",
            "properties": {
                "toStage": {"type": "string"},
                "payload": {"type": "object"}
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
                "status": {"type": "integer"},
                "fields": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "field": {"type": "string"},
                            "message": {"type": "string"}
                        }
                    }
                }
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
