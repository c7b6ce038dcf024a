package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Client Onboarding API",
        "description": "Client onboarding backend syncing questions, templates and answer files into the remote document store",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Authentication", "description": "Back-office staff login"},
        {"name": "Clients", "description": "Client lifecycle and folder provisioning"},
        {"name": "Questions", "description": "Question sets with folder reconciliation"},
        {"name": "Documents", "description": "Template uploads and file downloads"},
        {"name": "Portal", "description": "Client self-service by login key"},
        {"name": "Reports", "description": "Completion report exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/clients": {
            "get": {
                "tags": ["Clients"],
                "summary": "List clients",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Clients"],
                "summary": "Create client and provision its folder tree",
                "responses": {
                    "201": {"description": "Created"},
                    "502": {"description": "Remote store unavailable"}
                }
            }
        },
        "/clients/{loginKey}": {
            "get": {
                "tags": ["Clients"],
                "summary": "Get client detail",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "patch": {
                "tags": ["Clients"],
                "summary": "Update client",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Clients"],
                "summary": "Delete client and schedule remote tree cleanup",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/clients/{loginKey}/questions": {
            "get": {
                "tags": ["Questions"],
                "summary": "List questions with completion status",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Questions"],
                "summary": "Add question",
                "responses": {"201": {"description": "Created"}}
            },
            "put": {
                "tags": ["Questions"],
                "summary": "Replace question set",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/clients/{loginKey}/questions/{id}": {
            "put": {
                "tags": ["Questions"],
                "summary": "Edit question text (migrates the remote folder on segment change)",
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Questions"],
                "summary": "Remove question and its folder subtree",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/clients/{loginKey}/questions/{id}/templates": {
            "post": {
                "tags": ["Documents"],
                "summary": "Upload template batch with per-file outcomes",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/files/{fileId}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a stored file",
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/portal/{loginKey}/questions": {
            "get": {
                "tags": ["Portal"],
                "summary": "Portal question list",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/portal/{loginKey}/questions/{id}/answers": {
            "post": {
                "tags": ["Portal"],
                "summary": "Submit an answer file",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/clients/{loginKey}/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Generate a completion report",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/reports/{id}/download": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a generated report with a signed token",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Invalid token"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Client Onboarding API",
	Description:      "Client onboarding backend syncing questions, templates and answer files into the remote document store",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
