package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Leveling Matriculation API",
        "description": "Allocates leveling demands into section-courses and reports schedule conflicts",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Matriculation", "description": "Preview and commit matriculation of a leveling run"},
        {"name": "Reassignments", "description": "Move students between parallel section-courses"},
        {"name": "Conflicts", "description": "Schedule conflict report"}
    ],
    "paths": {
        "/leveling-runs/{runId}/matriculation/preview": {
            "get": {
                "tags": ["Matriculation"],
                "summary": "Simulate a matriculation",
                "parameters": [
                    {"name": "runId", "in": "path", "required": true, "type": "string"},
                    {"name": "facultyGroup", "in": "query", "required": true, "type": "string"},
                    {"name": "campusName", "in": "query", "type": "string"},
                    {"name": "strategy", "in": "query", "type": "string", "enum": ["INCREMENTAL"]},
                    {"name": "policy", "in": "query", "type": "string", "enum": ["FILL_EXISTING_FIRST", "CREATION_ORDER", "MOTHER_SECTION_FIRST"]}
                ],
                "responses": {
                    "200": {"description": "Planned placements", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Run not matriculable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leveling-runs/{runId}/matriculation": {
            "post": {
                "tags": ["Matriculation"],
                "summary": "Commit a matriculation",
                "parameters": [
                    {"name": "runId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/MatriculationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Committed placements", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Administrators only", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Run not matriculable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/section-courses/{sectionCourseId}/reassignment-options": {
            "get": {
                "tags": ["Reassignments"],
                "summary": "List reassignment destinations",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "sectionCourseId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Destinations", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Student not in section-course", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Section-course not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/reassignments": {
            "get": {
                "tags": ["Reassignments"],
                "summary": "List a student's reassignments",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Audit rows, newest first", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reassignments": {
            "post": {
                "tags": ["Reassignments"],
                "summary": "Move a student to a parallel section-course",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReassignRequest"}}
                ],
                "responses": {
                    "200": {"description": "Moved or no-op", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid destination", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "CONFLICT_ERROR or CAPACITY_EXCEEDED (meta.requiresConfirmation)", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts": {
            "get": {
                "tags": ["Conflicts"],
                "summary": "List student schedule conflicts",
                "parameters": [
                    {"name": "periodId", "in": "query", "type": "string"},
                    {"name": "facultyGroup", "in": "query", "type": "string"},
                    {"name": "campusName", "in": "query", "type": "string"},
                    {"name": "courseName", "in": "query", "type": "string"},
                    {"name": "studentCode", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active period", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "MatriculationRequest": {
            "type": "object",
            "properties": {
                "facultyGroup": {"type": "string"},
                "campusName": {"type": "string"},
                "strategy": {"type": "string", "enum": ["INCREMENTAL"]},
                "policy": {"type": "string", "enum": ["FILL_EXISTING_FIRST", "CREATION_ORDER", "MOTHER_SECTION_FIRST"]}
            }
        },
        "ReassignRequest": {
            "type": "object",
            "required": ["studentId", "fromSectionCourseId", "toSectionCourseId"],
            "properties": {
                "studentId": {"type": "string"},
                "fromSectionCourseId": {"type": "string"},
                "toSectionCourseId": {"type": "string"},
                "confirmOverCapacity": {"type": "boolean"},
                "reason": {"type": "string"}
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
