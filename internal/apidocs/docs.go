// Transitwatch - Real-Time Transit Tracking and Event Fan-Out
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitwatch

// Package apidocs registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/server/main.go -o internal/apidocs
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {"name": "AGPL-3.0-or-later"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/health/live": {
            "get": {"tags": ["Health"], "summary": "Liveness probe", "produces": ["application/json"],
                "responses": {"200": {"description": "Service is alive", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/health/ready": {
            "get": {"tags": ["Health"], "summary": "Readiness probe", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Service is ready", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Store unreachable", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/realtime": {
            "get": {"tags": ["Realtime"], "summary": "Realtime hub information", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/login": {
            "post": {"tags": ["Auth"], "summary": "Log in", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/logout": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Log out", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/auth/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Auth"], "summary": "Current user", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/vehicles/{id}/location": {
            "get": {"tags": ["Vehicles"], "summary": "Vehicle location history", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 24, "name": "hours", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Unknown vehicle", "schema": {"$ref": "#/definitions/models.APIResponse"}}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Vehicles"], "summary": "Publish a vehicle location",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "location", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.LocationRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "503": {"description": "Store unavailable", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/alerts": {
            "get": {"tags": ["Alerts"], "summary": "Active service alerts", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "city_id", "in": "query"},
                    {"type": "string", "name": "route_id", "in": "query"},
                    {"enum": ["low", "medium", "high", "critical"], "type": "string", "name": "severity", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/admin/alerts": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Alerts"], "summary": "Create a service alert",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"name": "alert", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AlertRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/admin/alerts/{id}": {
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Alerts"], "summary": "Deactivate a service alert", "produces": ["application/json"],
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        },
        "/stops/{id}/eta": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Stops"], "summary": "Publish an ETA prediction",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "eta", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ETARequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.APIResponse"}}}}
        }
    },
    "definitions": {
        "models.APIError": {"type": "object", "properties": {
            "code": {"type": "string"}, "message": {"type": "string"}, "details": {"type": "object"}}},
        "models.APIResponse": {"type": "object", "properties": {
            "status": {"type": "string"}, "data": {}, "error": {"$ref": "#/definitions/models.APIError"},
            "metadata": {"type": "object", "properties": {"timestamp": {"type": "string"}, "request_id": {"type": "string"}, "count": {"type": "integer"}}}}},
        "models.LoginRequest": {"type": "object", "required": ["email", "password"], "properties": {
            "email": {"type": "string"}, "password": {"type": "string"}}},
        "models.LocationRequest": {"type": "object", "required": ["latitude", "longitude"], "properties": {
            "latitude": {"type": "number"}, "longitude": {"type": "number"}, "speed_kmh": {"type": "number"},
            "heading": {"type": "number"}, "accuracy_meters": {"type": "number"}}},
        "models.AlertRequest": {"type": "object", "required": ["alert_type", "severity", "title", "message"], "properties": {
            "city_id": {"type": "string"}, "route_id": {"type": "string"},
            "alert_type": {"type": "string", "enum": ["delay", "cancellation", "diversion", "maintenance", "emergency"]},
            "severity": {"type": "string", "enum": ["low", "medium", "high", "critical"]},
            "title": {"type": "string"}, "message": {"type": "string"}, "end_time": {"type": "string"}}},
        "models.ETARequest": {"type": "object", "required": ["vehicle_id", "predicted_arrival_time"], "properties": {
            "vehicle_id": {"type": "string"}, "route_id": {"type": "string"}, "predicted_arrival_time": {"type": "string"},
            "delay_minutes": {"type": "integer"}, "confidence_level": {"type": "number"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Transitwatch API",
	Description:      "Real-time transit tracking: vehicle locations, service alerts and arrival predictions, fanned out over WebSocket topics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
