package httpx

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {"get": {"summary": "List the catalog", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ListResponse"}}}}},
        "/products/search": {"get": {"summary": "Search the catalog by term", "produces": ["application/json"],
            "parameters": [{"name": "q", "in": "query", "type": "string", "required": true}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ListResponse"}}}}},
        "/products/{id}": {"get": {"summary": "One product; a view by a known customer is recorded", "produces": ["application/json"],
            "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
            "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}},
        "/recently-viewed": {"get": {"summary": "Recently viewed products, newest first", "produces": ["application/json"],
            "parameters": [{"name": "limit", "in": "query", "type": "integer"}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ListResponse"}}}}},
        "/cart": {"get": {"summary": "Current cart", "produces": ["application/json"],
            "responses": {"200": {"description": "OK"}, "204": {"description": "No cart"}}}},
        "/cart/count": {"get": {"summary": "Cart item count", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/CountResponse"}}}}},
        "/cart/items": {"post": {"summary": "Add a product to the cart", "consumes": ["application/json"],
            "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AddItemRequest"}}],
            "responses": {"204": {"description": "Added"}, "404": {"description": "Unknown product"}, "422": {"description": "Product has no price"}}}},
        "/cart/items/{id}": {
            "put": {"summary": "Set a line quantity, 0 removes it", "consumes": ["application/json"],
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateQuantityRequest"}}],
                "responses": {"204": {"description": "Updated"}, "404": {"description": "Unknown line"}}},
            "delete": {"summary": "Remove a line",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Removed"}, "404": {"description": "Unknown line"}}}},
        "/checkout": {"post": {"summary": "Place an order from the cart", "consumes": ["application/json"],
            "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckoutRequest"}}],
            "responses": {"201": {"description": "Placed"}, "400": {"description": "Invalid form or empty cart"}}}},
        "/orders": {"get": {"summary": "Order history", "produces": ["application/json"],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/OrderList"}}}}},
        "/orders/{id}": {"get": {"summary": "One order with its items", "produces": ["application/json"],
            "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
            "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/OrderDetail"}}, "404": {"description": "Not found"}}}},
        "/quotes": {
            "get": {"summary": "Quotes of the shopper", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/QuoteList"}}}},
            "post": {"summary": "Create a quote from the cart", "produces": ["application/json"],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Empty cart"}}}}
    },
    "definitions": {
        "ListResponse": {"type": "object", "properties": {"q": {"type": "string"}, "total": {"type": "integer"}, "items": {"type": "array", "items": {"type": "object"}}}},
        "CountResponse": {"type": "object", "properties": {"count": {"type": "integer"}}},
        "AddItemRequest": {"type": "object", "required": ["product_id", "quantity"],
            "properties": {"product_id": {"type": "string"}, "quantity": {"type": "integer", "minimum": 1}}},
        "UpdateQuantityRequest": {"type": "object", "required": ["quantity"],
            "properties": {"quantity": {"type": "integer", "minimum": 0}}},
        "CheckoutRequest": {"type": "object", "properties": {"contact": {"type": "object"}, "shipping": {"type": "object"}, "paymentToken": {"type": "string"}}},
        "OrderList": {"type": "object", "properties": {"total": {"type": "integer"}, "items": {"type": "array", "items": {"type": "object"}}}},
        "OrderDetail": {"type": "object", "properties": {"order": {"type": "object"}, "items": {"type": "array", "items": {"type": "object"}}}},
        "QuoteList": {"type": "object", "properties": {"total": {"type": "integer"}, "items": {"type": "array", "items": {"type": "object"}}}}
    }
}`

// SwaggerInfo describes the storefront API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "Catalog, cart, checkout, orders and quotes for the storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// SwaggerUI serves the API doc and its UI under a /swagger/*any route.
func SwaggerUI() gin.HandlerFunc {
	return ginSwagger.WrapHandler(swaggerFiles.Handler)
}
