package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ASMiL Administration API",
        "description": "Back office of the ASMiL institute: students, sessions, billing, reconciliation and administration.",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Login, profile and password management"},
        {"name": "Students", "description": "Student records and photos"},
        {"name": "Catalogue", "description": "Formations, modules, teachers and sessions"},
        {"name": "Billing", "description": "Enrollments, invoices and payments"},
        {"name": "Pedagogy", "description": "Grades, attendance and certificates"},
        {"name": "Finance", "description": "Financial overview and exports"},
        {"name": "Dashboard", "description": "Role dashboards"},
        {"name": "Administration", "description": "Settings, audit trail and backups"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/change-password/{id}": {
            "put": {
                "tags": ["Auth"],
                "summary": "Change a password",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/ChangePasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Passwords do not match"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "search", "type": "string"},
                    {"in": "query", "name": "status", "type": "string"},
                    {"in": "query", "name": "formation_id", "type": "string"},
                    {"in": "query", "name": "page", "type": "integer"},
                    {"in": "query", "name": "page_size", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Create a student",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation error"}}
            }
        },
        "/formations": {
            "get": {"tags": ["Catalogue"], "summary": "List formations", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/sessions": {
            "get": {"tags": ["Catalogue"], "summary": "List sessions", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/timetable": {
            "get": {"tags": ["Catalogue"], "summary": "Weekly timetable", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/enrollments": {
            "post": {
                "tags": ["Billing"],
                "summary": "Enroll a student and issue the invoice",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Duplicate enrollment"}}
            }
        },
        "/invoices/stats": {
            "get": {"tags": ["Billing"], "summary": "Invoice statistics", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/payments": {
            "get": {
                "tags": ["Billing"],
                "summary": "List payments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "from", "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Billing"],
                "summary": "Record a payment",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Amount exceeds balance"}}
            }
        },
        "/attendances/bulk": {
            "post": {"tags": ["Pedagogy"], "summary": "Record attendance for a whole session", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/certificates": {
            "post": {"tags": ["Pedagogy"], "summary": "Issue a certificate", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/certificates/{id}/pdf": {
            "get": {
                "tags": ["Pedagogy"],
                "summary": "Download a certificate",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "PDF document"}}
            }
        },
        "/finance/overview": {
            "get": {
                "tags": ["Finance"],
                "summary": "Financial overview",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/finance/overview/export": {
            "get": {
                "tags": ["Finance"],
                "summary": "Export the financial overview",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf", "xlsx"]}],
                "responses": {"200": {"description": "File"}, "400": {"description": "Unsupported format"}}
            }
        },
        "/dashboard/admin": {
            "get": {"tags": ["Dashboard"], "summary": "Administrator dashboard", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/dashboard/secretary": {
            "get": {"tags": ["Dashboard"], "summary": "Secretary dashboard", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/settings": {
            "get": {"tags": ["Administration"], "summary": "List settings", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Administration"], "summary": "Update settings", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/audit-logs": {
            "get": {"tags": ["Administration"], "summary": "Audit trail", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/backup/export": {
            "get": {"tags": ["Administration"], "summary": "Export a JSON backup", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "Backup file"}}}
        },
        "/backup/import": {
            "post": {
                "tags": ["Administration"],
                "summary": "Restore a JSON backup",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data", "application/json"],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid backup"}, "413": {"description": "Too large"}}
            }
        },
        "/backups/run": {
            "post": {"tags": ["Administration"], "summary": "Queue a backup run", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Accepted"}}}
        },
        "/backups/download/{token}": {
            "get": {
                "tags": ["Administration"],
                "summary": "Download a backup through a signed link",
                "parameters": [{"in": "path", "name": "token", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Backup file"}, "403": {"description": "Invalid or expired link"}}
            }
        }
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
        "LoginResponse": {
            "type": "object",
            "properties": {
                "user": {"$ref": "#/definitions/UserInfo"},
                "token": {"type": "string"},
                "expires_in": {"type": "integer"}
            }
        },
        "UserInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["Admin", "Gestionnaire"]},
                "status": {"type": "string"},
                "avatar_url": {"type": "string"}
            }
        },
        "ChangePasswordRequest": {
            "type": "object",
            "required": ["current_password", "new_password", "confirm_password"],
            "properties": {
                "current_password": {"type": "string"},
                "new_password": {"type": "string"},
                "confirm_password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
                "message": {"type": "string"},
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
