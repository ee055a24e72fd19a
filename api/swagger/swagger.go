package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "PathLab API",
        "description": "Pathology sample tracking and report lifecycle service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Samples", "description": "Sample registration and lifecycle"},
        {"name": "Measurements", "description": "Versioned measurement ledger"},
        {"name": "Reports", "description": "Diagnostic report workflow"},
        {"name": "Doctors", "description": "Doctor reference data"},
        {"name": "Patients", "description": "Patient reference data"},
        {"name": "Images", "description": "Sample image catalogue"}
    ],
    "paths": {
        "/samples": {
            "get": {
                "tags": ["Samples"],
                "summary": "Search samples",
                "parameters": [
                    {"name": "patientId", "in": "query", "type": "string"},
                    {"name": "doctorId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "tissueType", "in": "query", "type": "string"},
                    {"name": "collectedFrom", "in": "query", "type": "string"},
                    {"name": "collectedTo", "in": "query", "type": "string"},
                    {"name": "ready", "in": "query", "type": "boolean"},
                    {"name": "withoutReport", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Samples"],
                "summary": "Register sample",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSampleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Business rule violated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/samples/{id}/status": {
            "patch": {
                "tags": ["Samples"],
                "summary": "Change sample status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid state transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/samples/{id}/measurements": {
            "get": {
                "tags": ["Measurements"],
                "summary": "List measurement versions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Measurements"],
                "summary": "Record a measurement version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordMeasurementRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Sample canceled or released", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/samples/{id}/measurements/{version}/activate": {
            "post": {
                "tags": ["Measurements"],
                "summary": "Activate a historical measurement version",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "version", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Version not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List reports",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "pathologistId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Open a draft report",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Sample not ready or already reported", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}/issue": {
            "post": {
                "tags": ["Reports"],
                "summary": "Issue a report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Report incomplete", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}/release": {
            "post": {
                "tags": ["Reports"],
                "summary": "Release an issued report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Report not issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}/pdf": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download report PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF document"}
                }
            }
        }
    },
    "definitions": {
        "CreateSampleRequest": {
            "type": "object",
            "required": ["tracking_code", "patient_id", "requesting_doctor_id", "tissue_type", "collection_date"],
            "properties": {
                "tracking_code": {"type": "string"},
                "patient_id": {"type": "string"},
                "requesting_doctor_id": {"type": "string"},
                "tissue_type": {"type": "string"},
                "anatomical_site": {"type": "string"},
                "collection_date": {"type": "string"},
                "receipt_date": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string"}
            }
        },
        "RecordMeasurementRequest": {
            "type": "object",
            "required": ["width_mm", "height_mm", "measured_by"],
            "properties": {
                "width_mm": {"type": "string"},
                "height_mm": {"type": "string"},
                "depth_mm": {"type": "string"},
                "method": {"type": "string"},
                "equipment": {"type": "string"},
                "measured_by": {"type": "string"},
                "measured_at": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "CreateReportRequest": {
            "type": "object",
            "required": ["sample_id", "pathologist_id"],
            "properties": {
                "sample_id": {"type": "string"},
                "pathologist_id": {"type": "string"},
                "primary_diagnosis": {"type": "string"},
                "secondary_diagnoses": {"type": "string"},
                "conclusion": {"type": "string"},
                "recommendations": {"type": "string"},
                "diagnosis_code": {"type": "string"}
            }
        },
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
                "pagination": {"$ref": "#/definitions/Pagination"}
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
