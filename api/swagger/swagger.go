package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Performance API",
        "description": "Grading and performance aggregation over student score and attendance records",
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
        {"name": "Authentication", "description": "Credential sign-in"},
        {"name": "Grading", "description": "Grading schemes and the active policy"},
        {"name": "Performance", "description": "Student, cohort and attendance aggregation"},
        {"name": "Exports", "description": "CSV and PDF report exports"},
        {"name": "Metrics", "description": "Instrumentation"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/Envelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/grading/schemes": {
            "get": {
                "tags": ["Grading"],
                "summary": "List grading schemes",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/grading/policy": {
            "get": {
                "tags": ["Grading"],
                "summary": "Active grading policy",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            },
            "put": {
                "tags": ["Grading"],
                "summary": "Update grading policy",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpdateGradingPolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/performance/students/{id}": {
            "get": {
                "tags": ["Performance"],
                "summary": "Student performance",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"$ref": "#/parameters/subjectId"},
                    {"$ref": "#/parameters/examId"},
                    {"$ref": "#/parameters/dateFrom"},
                    {"$ref": "#/parameters/dateTo"},
                    {"$ref": "#/parameters/strict"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/Envelope"}},
                    "422": {"description": "Invalid score records in strict mode", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/performance/cohorts": {
            "get": {
                "tags": ["Performance"],
                "summary": "Cohort statistics",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classIdRequired"},
                    {"$ref": "#/parameters/subjectId"},
                    {"$ref": "#/parameters/examId"},
                    {"$ref": "#/parameters/dateFrom"},
                    {"$ref": "#/parameters/dateTo"},
                    {"$ref": "#/parameters/strict"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/performance/attendance": {
            "get": {
                "tags": ["Performance"],
                "summary": "Attendance summary",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"in": "query", "name": "student_id", "type": "string"},
                    {"$ref": "#/parameters/dateFrom"},
                    {"$ref": "#/parameters/dateTo"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/performance/attendance/students": {
            "get": {
                "tags": ["Performance"],
                "summary": "Attendance per student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/dateFrom"},
                    {"$ref": "#/parameters/dateTo"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/performance/attendance/daily": {
            "get": {
                "tags": ["Performance"],
                "summary": "Attendance per day",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classId"},
                    {"$ref": "#/parameters/dateFrom"},
                    {"$ref": "#/parameters/dateTo"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/performance/reports": {
            "get": {
                "tags": ["Performance"],
                "summary": "Class performance report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/classIdRequired"},
                    {"$ref": "#/parameters/subjectId"},
                    {"$ref": "#/parameters/examId"},
                    {"$ref": "#/parameters/dateFrom"},
                    {"$ref": "#/parameters/dateTo"},
                    {"$ref": "#/parameters/strict"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/performance/reports/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a report export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/performance/reports/export/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "token", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/Envelope"}},
                    "410": {"description": "Export expired", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/metrics/system": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Instrumentation snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        }
    },
    "parameters": {
        "classId": {"in": "query", "name": "class_id", "type": "string"},
        "classIdRequired": {"in": "query", "name": "class_id", "type": "string", "required": true},
        "subjectId": {"in": "query", "name": "subject_id", "type": "string"},
        "examId": {"in": "query", "name": "exam_id", "type": "string"},
        "dateFrom": {"in": "query", "name": "date_from", "type": "string", "format": "date"},
        "dateTo": {"in": "query", "name": "date_to", "type": "string", "format": "date"},
        "strict": {"in": "query", "name": "strict", "type": "boolean"}
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UpdateGradingPolicyRequest": {
            "type": "object",
            "properties": {
                "scheme": {"type": "string", "enum": ["standard", "plus", "letter"]},
                "pass_threshold": {"type": "number"},
                "pass_boundary": {"type": "string", "enum": ["INCLUSIVE", "EXCLUSIVE"]},
                "attendance_good_threshold": {"type": "number"},
                "attendance_warning_threshold": {"type": "number"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["class_id", "format"],
            "properties": {
                "class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "exam_id": {"type": "string"},
                "date_from": {"type": "string", "format": "date"},
                "date_to": {"type": "string", "format": "date"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object"}
            }
        },
        "Envelope": {
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
