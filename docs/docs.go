// Package docs 注册 swagger 文档，由 swag init -g cmd/api-gateway/main.go 生成后按需精简
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
        "/admin/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["管理员认证"],
                "summary": "管理员登录",
                "parameters": [
                    {"description": "登录信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/admin/merchants": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["商户管理"],
                "summary": "商户列表",
                "parameters": [
                    {"type": "integer", "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "description": "每页数量", "name": "page_size", "in": "query"},
                    {"type": "string", "description": "姓名、证件号或电话", "name": "keyword", "in": "query"},
                    {"type": "integer", "description": "状态", "name": "status", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}}
            },
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["商户管理"],
                "summary": "创建商户",
                "parameters": [
                    {"description": "商户信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/merchant.CreateMerchantRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/admin/merchants/{id}/payments": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["缴费管理"],
                "summary": "登记缴费",
                "parameters": [
                    {"type": "integer", "description": "商户ID", "name": "id", "in": "path", "required": true},
                    {"description": "缴费信息", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/payment.RecordPaymentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Response"}}}
            }
        },
        "/admin/payments/export": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["缴费管理"],
                "summary": "导出缴费记录",
                "parameters": [
                    {"type": "integer", "description": "商户ID", "name": "merchant_id", "in": "query"},
                    {"type": "string", "description": "annual 或 stall", "name": "type", "in": "query"},
                    {"type": "string", "description": "开始日期 2006-01-02", "name": "start_date", "in": "query"},
                    {"type": "string", "description": "结束日期 2006-01-02", "name": "end_date", "in": "query"}
                ],
                "responses": {"200": {"description": "xlsx 文件"}}
            }
        },
        "/admin/merchants/import": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["商户导入"],
                "summary": "导入商户表格",
                "parameters": [
                    {"type": "file", "description": "xlsx 文件", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "工作表名称", "name": "sheet", "in": "query"},
                    {"type": "boolean", "description": "仅校验不写入", "name": "dry_run", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "导入进行中", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "auth.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "merchant.CreateMerchantRequest": {
            "type": "object",
            "required": ["name", "national_id"],
            "properties": {
                "name": {"type": "string"},
                "national_id": {"type": "string"},
                "phone": {"type": "string"},
                "secondary_phone": {"type": "string"},
                "address": {"type": "string"}
            }
        },
        "payment.RecordPaymentRequest": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "enum": ["ANNUAL_FEE", "STALL_FEE"]},
                "payment_date": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "市场商户管理 API",
	Description:      "市场商户、摊位、合同与缴费管理后台接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
