package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TRS EWC Wales Import API",
        "description": "Imports EWC Wales induction and QTS files into the Teaching Record System.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Imports", "description": "EWC Wales import runs"},
        {"name": "IntegrationTransactions", "description": "Import ledger"}
    ],
    "paths": {
        "/health": {
            "get": {"summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Dependencies reachable"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {"summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/imports/ewc-wales/run": {
            "post": {
                "tags": ["Imports"],
                "summary": "Start an EWC Wales import run",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A run is already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/imports/ewc-wales/status": {
            "get": {
                "tags": ["Imports"],
                "summary": "Show the last EWC Wales import run",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/integration-transactions": {
            "get": {
                "tags": ["IntegrationTransactions"],
                "summary": "List import runs",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["InProgress", "Success", "Failed"]},
                    {"name": "fileName", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/integration-transactions/{id}": {
            "get": {
                "tags": ["IntegrationTransactions"],
                "summary": "Get an import run with its records",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/integration-transactions/{id}/records": {
            "get": {
                "tags": ["IntegrationTransactions"],
                "summary": "List the records of an import run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["Success", "Failure"]}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/integration-transactions/{id}/export.csv": {
            "get": {
                "tags": ["IntegrationTransactions"],
                "summary": "Download the records of an import run as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "CSV file"}}
            }
        },
        "/api/v1/integration-transactions/{id}/report.pdf": {
            "get": {
                "tags": ["IntegrationTransactions"],
                "summary": "Download a PDF summary of an import run",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "PDF file"}}
            }
        }
    },
    "definitions": {
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
