package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "EcoJourney Carbon Coaching API",
    "description": "Carbon coaching reports, badges and emission reference data",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/v1/generate-feedback": {
      "post": {
        "tags": ["coaching"],
        "summary": "Generate a coaching report",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "object"}}],
        "responses": {
          "200": {"description": "report as a JSON string in data"},
          "400": {"description": "invalid input"},
          "502": {"description": "generation failed"},
          "504": {"description": "generation timed out"}
        }
      }
    },
    "/api/v1/badges/check": {
      "post": {
        "tags": ["badges"],
        "summary": "Check earned badges",
        "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "array", "items": {"type": "object"}}}],
        "responses": {"200": {"description": "badges"}, "400": {"description": "invalid payload"}}
      }
    },
    "/api/v1/categories": {
      "get": {"tags": ["reference"], "summary": "Supported categories", "responses": {"200": {"description": "categories"}}}
    },
    "/api/v1/average": {
      "get": {"tags": ["reference"], "summary": "Average daily emission", "responses": {"200": {"description": "averages"}}}
    },
    "/api/v1/average/{category}": {
      "get": {
        "tags": ["reference"],
        "summary": "Average daily emission of one category",
        "parameters": [{"in": "path", "name": "category", "required": true, "type": "string"}],
        "responses": {"200": {"description": "average"}, "404": {"description": "unknown category"}}
      }
    },
    "/api/v1/compare": {
      "post": {
        "tags": ["reference"],
        "summary": "Compare an emission with the average",
        "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "object"}}],
        "responses": {"200": {"description": "comparison"}, "400": {"description": "invalid payload"}}
      }
    },
    "/api/v1/avatar/state": {
      "post": {
        "tags": ["reference"],
        "summary": "Earth avatar state",
        "parameters": [
          {"in": "query", "name": "total_carbon", "required": true, "type": "number"},
          {"in": "query", "name": "daily_limit", "required": false, "type": "number"}
        ],
        "responses": {"200": {"description": "avatar state"}, "400": {"description": "invalid query"}}
      }
    },
    "/api/v1/feedback/recent": {
      "get": {
        "tags": ["admin"],
        "summary": "Recent generated reports",
        "parameters": [
          {"in": "header", "name": "X-Admin-Key", "required": false, "type": "string"},
          {"in": "query", "name": "source", "required": false, "type": "string"},
          {"in": "query", "name": "limit", "required": false, "type": "integer"}
        ],
        "responses": {"200": {"description": "audit rows"}, "401": {"description": "invalid admin key"}, "503": {"description": "no database"}}
      }
    },
    "/healthz": {
      "get": {"tags": ["system"], "summary": "Health check", "responses": {"200": {"description": "ok"}, "503": {"description": "database unavailable"}}}
    }
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
