package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scolarite API",
        "description": "Student registry, tuition ledger and grade sheet for a school secretariat",
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
        {"name": "Auth", "description": "Unlock protected actions with their shared secret"},
        {"name": "Students", "description": "Student registry"},
        {"name": "Payments", "description": "Tuition ledger"},
        {"name": "Grades", "description": "Grade sheet and report cards"},
        {"name": "Spreadsheet", "description": "Workbook import and exports"},
        {"name": "Metrics", "description": "Service instrumentation"}
    ],
    "paths": {
        "/auth/unlock": {
            "post": {
                "tags": ["Auth"],
                "summary": "Unlock an action",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UnlockRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Incorrect secret", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Action has no secret configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "classe", "in": "query", "type": "string"},
                    {"name": "groupe", "in": "query", "type": "string", "enum": ["primaire", "secondaire"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register a student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/by-class": {
            "get": {
                "tags": ["Students"],
                "summary": "List students grouped by class",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "classe", "in": "query", "type": "string"},
                    {"name": "groupe", "in": "query", "type": "string", "enum": ["primaire", "secondaire"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Get student detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterStudentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Delete a student with its grades and payments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "401": {"description": "Locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "List the payments of a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "summary": "Record a tuition payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid amount or overpayment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Locked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/payments/{index}/receipt": {
            "get": {
                "tags": ["Payments"],
                "summary": "Download a payment receipt",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PDF receipt"}
                }
            }
        },
        "/students/{id}/balance": {
            "get": {
                "tags": ["Payments"],
                "summary": "Current balance of a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/grades": {
            "put": {
                "tags": ["Grades"],
                "summary": "Set a grade",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/report-card": {
            "get": {
                "tags": ["Grades"],
                "summary": "Report card of a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "trimestre", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/grades/bulk": {
            "post": {
                "tags": ["Grades"],
                "summary": "Enter one subject for a whole class",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/xlsx": {
            "get": {
                "tags": ["Spreadsheet"],
                "summary": "Export every student as a workbook",
                "responses": {"200": {"description": "XLSX file"}}
            }
        },
        "/export/csv": {
            "get": {
                "tags": ["Spreadsheet"],
                "summary": "Export every student as CSV",
                "responses": {"200": {"description": "CSV file"}}
            }
        },
        "/export/roster.pdf": {
            "get": {
                "tags": ["Spreadsheet"],
                "summary": "Printable class roster",
                "parameters": [
                    {"name": "classe", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "PDF file"}}
            }
        },
        "/import": {
            "post": {
                "tags": ["Spreadsheet"],
                "summary": "Import students from a workbook",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "413": {"description": "File too large", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unreadable workbook", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Instrumentation summary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "UnlockRequest": {
            "type": "object",
            "required": ["action", "password"],
            "properties": {
                "action": {"type": "string", "enum": ["payments", "deletions", "grades"]},
                "password": {"type": "string"},
                "operator": {"type": "string"}
            }
        },
        "RegisterStudentRequest": {
            "type": "object",
            "required": ["nom", "prenoms", "classe", "sexe", "date_naissance", "telephone", "scolarite"],
            "properties": {
                "nom": {"type": "string"},
                "prenoms": {"type": "string"},
                "classe": {"type": "string"},
                "sexe": {"type": "string", "enum": ["M", "F"]},
                "date_naissance": {"type": "string", "format": "date"},
                "tuteur": {"type": "string"},
                "telephone": {"type": "string"},
                "enregistre_par": {"type": "string"},
                "scolarite": {"type": "integer"}
            }
        },
        "RecordPaymentRequest": {
            "type": "object",
            "required": ["montant"],
            "properties": {
                "montant": {"type": "integer"},
                "mode": {"type": "string"},
                "recu_par": {"type": "string"}
            }
        },
        "SetGradeRequest": {
            "type": "object",
            "required": ["matiere", "valeur"],
            "properties": {
                "matiere": {"type": "string"},
                "trimestre": {"type": "string"},
                "valeur": {"type": "number"},
                "coefficient": {"type": "number"},
                "enseignant": {"type": "string"}
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
