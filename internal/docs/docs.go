// Package docs registers the SmartSpend API description with swag.
// Regenerate with: swag init -g cmd/api/main.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Register a new user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"201": {"description": "User registered and token generated"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in with email and password",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "Token generated"}}
            }
        },
        "/profile": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Get the current user",
                "responses": {"200": {"description": "User profile"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Delete the current user and their data",
                "responses": {"200": {"description": "Account deleted"}}
            }
        },
        "/profile/activity": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Get account activity",
                "responses": {"200": {"description": "Activity page"}}
            }
        },
        "/categories": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["categories"],
                "summary": "List categories",
                "responses": {"200": {"description": "Paginated categories"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["categories"],
                "summary": "Create a category",
                "responses": {"201": {"description": "Category created"}}
            }
        },
        "/categories/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["categories"],
                "summary": "Get a category",
                "responses": {"200": {"description": "Category"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["categories"],
                "summary": "Update a category",
                "responses": {"200": {"description": "Category updated"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["categories"],
                "summary": "Delete a category",
                "responses": {"200": {"description": "Category deleted"}}
            }
        },
        "/transactions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "List transactions",
                "responses": {"200": {"description": "Paginated transactions"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Create a transaction",
                "responses": {"201": {"description": "Transaction created"}}
            }
        },
        "/transactions/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Get a transaction",
                "responses": {"200": {"description": "Transaction"}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Update a transaction",
                "responses": {"200": {"description": "Transaction updated"}}
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Delete a transaction",
                "responses": {"200": {"description": "Transaction deleted"}}
            }
        },
        "/transactions/import": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["transactions"],
                "summary": "Import transactions from a CSV file",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Import summary"},
                    "400": {"description": "Missing, malformed or empty CSV"},
                    "413": {"description": "File too large"},
                    "429": {"description": "Too many uploads"}
                }
            }
        },
        "/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["dashboard"],
                "summary": "Get dashboard totals and recent transactions",
                "responses": {"200": {"description": "Dashboard summary"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "SmartSpend API",
	Description:      "SmartSpend tracks personal income and expenses, imports bank CSV exports and summarizes balances.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
