// Package auth holds the OpenAPI document served at /swagger/. Regenerate
// with `swag init -g internal/auth/http/router.go -o api/auth --ot go`.
package auth

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Criss Vargas"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/auth/register": {
            "post": {
                "description": "Creates an identity with a password. No session is issued.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register",
                "parameters": [
                    {
                        "description": "email, password, optional nombre",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.RegisterRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "the created identity", "schema": {"$ref": "#/definitions/authsdk.RegisterResponse"}},
                    "400": {"description": "invalid_input", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "409": {"description": "already_exists", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "description": "Verifies email and password and issues a one hour session token.\nUnknown emails and wrong passwords return the same error.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Password login",
                "parameters": [
                    {
                        "description": "email and password",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "session token and identity", "schema": {"$ref": "#/definitions/authsdk.LoginResponse"}},
                    "400": {"description": "invalid_input", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "invalid_credentials", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/magic-link": {
            "post": {
                "description": "Replaces any outstanding code for the address with a new five digit code valid for ten minutes and mails it.\nThe code is never part of the response. If the mail cannot be delivered the new code is discarded.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Request a one-time code",
                "parameters": [
                    {
                        "description": "destination email",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.CodeRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "code sent", "schema": {"$ref": "#/definitions/authsdk.CodeResponse"}},
                    "400": {"description": "invalid_input", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "unknown_destination", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "502": {"description": "delivery_failed, with the provider diagnostic in detail", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/verify-code": {
            "post": {
                "description": "Spends the code and issues a one hour session token. A code works once.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Redeem a one-time code",
                "parameters": [
                    {
                        "description": "email and code",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.VerifyCodeRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "session token and identity", "schema": {"$ref": "#/definitions/authsdk.LoginResponse"}},
                    "400": {"description": "invalid_input", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "401": {"description": "invalid_or_expired_code", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "unknown_destination", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/verify": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Validates the bearer token and returns the identity as currently stored.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Verify session",
                "responses": {
                    "200": {"description": "valid session", "schema": {"$ref": "#/definitions/authsdk.VerifyResponse"}},
                    "401": {"description": "unauthenticated", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "unknown_destination", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/api/auth/dashboard": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the authenticated identity including its last login time.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Dashboard",
                "responses": {
                    "200": {"description": "identity", "schema": {"$ref": "#/definitions/authsdk.DashboardResponse"}},
                    "401": {"description": "unauthenticated", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}},
                    "404": {"description": "unknown_destination", "schema": {"$ref": "#/definitions/authsdk.ErrorResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Returns 200 OK with uptime and version whenever the process is serving.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Pings the database. Also served as /api/health for the web frontend.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "database unreachable", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "nombre": {"type": "string"},
                "email": {"type": "string"},
                "authMethod": {"type": "string", "enum": ["password", "magic_link"]},
                "active": {"type": "boolean"},
                "lastLogin": {"type": "string", "format": "date-time"}
            }
        },
        "authsdk.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "detail": {"type": "string"}
            }
        },
        "authsdk.RegisterRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6, "maxLength": 255},
                "nombre": {"type": "string"}
            }
        },
        "authsdk.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "authsdk.CodeRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "authsdk.VerifyCodeRequest": {
            "type": "object",
            "required": ["email", "code"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string", "pattern": "^[0-9]{5}$"}
            }
        },
        "authsdk.RegisterResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.LoginResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "token": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.CodeResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "email": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "authsdk.VerifyResponse": {
            "type": "object",
            "properties": {
                "valid": {"type": "boolean"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.DashboardResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "user": {"$ref": "#/definitions/authsdk.User"}
            }
        },
        "authsdk.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"}
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "checks": {"$ref": "#/definitions/authsdk.HealthChecks"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:4000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Realestate Auth API",
	Description:      "Password and one-time code login for the realestate platform.\n\nSessions are HS256 bearer tokens valid for one hour. There is no refresh; log in again when a session lapses.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
