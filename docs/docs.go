// Package docs 는 /api/v1 라우트의 Swagger 문서다. handlers 의 godoc 주석과 맞춰 손으로
// 관리하며, swag CLI 가 있으면 go generate ./cmd/blog 로 다시 만들 수 있다.
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
        "/paths": {
            "get": {
                "description": "UIDs of the newest posts that are generated ahead of time; other posts are generated on first request",
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Prerendered post paths",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.StaticPathsDTO"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}}
                }
            }
        },
        "/posts": {
            "get": {
                "description": "List published posts, newest first",
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts",
                "parameters": [
                    {"type": "integer", "description": "Page number (1-based)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (<=100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PaginationPostSummaryDTO"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}}
                }
            }
        },
        "/posts/{uid}": {
            "get": {
                "description": "Post with neighbours, reading time and edit flag. Served from the page cache unless preview mode is active.",
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get post page data",
                "parameters": [
                    {"type": "string", "description": "Post UID", "name": "uid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/dto.PostView"},
                        "headers": {"X-Cache": {"type": "string", "description": "HIT, STALE or MISS"}}
                    },
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponseDTO"}}
                }
            }
        }
    },
    "definitions": {
        "dto.Banner": {
            "type": "object",
            "properties": {
                "alt": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "dto.ContentBlock": {
            "type": "object",
            "properties": {
                "body": {"type": "array", "items": {"type": "object"}},
                "heading": {"type": "string"}
            }
        },
        "dto.ErrorResponseDTO": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "not_found"}
            }
        },
        "dto.PaginationPostSummaryDTO": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/dto.PostSummary"}},
                "next_page": {"type": "integer"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "dto.PostData": {
            "type": "object",
            "properties": {
                "author": {"type": "string"},
                "banner": {"$ref": "#/definitions/dto.Banner"},
                "content": {"type": "array", "items": {"$ref": "#/definitions/dto.ContentBlock"}},
                "subtitle": {"type": "string"},
                "title": {"type": "string"}
            }
        },
        "dto.PostDocument": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/dto.PostData"},
                "first_publication_date": {"type": "string"},
                "id": {"type": "string"},
                "last_publication_date": {"type": "string"},
                "uid": {"type": "string"}
            }
        },
        "dto.PostPath": {
            "type": "object",
            "properties": {
                "uid": {"type": "string"}
            }
        },
        "dto.PostSummary": {
            "type": "object",
            "properties": {
                "author": {"type": "string"},
                "first_publication_date": {"type": "string"},
                "subtitle": {"type": "string"},
                "title": {"type": "string"},
                "uid": {"type": "string"}
            }
        },
        "dto.PostView": {
            "type": "object",
            "properties": {
                "next_post": {"$ref": "#/definitions/dto.PostDocument"},
                "post": {"$ref": "#/definitions/dto.PostDocument"},
                "prev_post": {"$ref": "#/definitions/dto.PostDocument"},
                "preview_active": {"type": "boolean"},
                "reading_time_minutes": {"type": "integer"},
                "was_edited": {"type": "boolean"}
            }
        },
        "dto.StaticPathsDTO": {
            "type": "object",
            "properties": {
                "fallback": {"type": "string", "example": "blocking"},
                "paths": {"type": "array", "items": {"$ref": "#/definitions/dto.PostPath"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "spacetraveling API",
	Description:      "Post pages, listings and preview mode for the spacetraveling blog",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
