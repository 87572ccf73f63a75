package steps

import "github.com/outriq/outriq/pkg/models"

// artifactSchemas are the JSON schemas artifact payloads must satisfy before
// the orchestrator persists them. Executors are external, so their output is
// checked at this trust boundary.
var artifactSchemas = map[models.ArtifactName]string{
	models.ArtifactContacts: `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"name":        {"type": "string", "minLength": 1},
				"title":       {"type": "string"},
				"company":     {"type": "string"},
				"profile_url": {"type": "string"},
				"email":       {"type": "string"},
				"source":      {"type": "string"}
			},
			"required": ["name"],
			"additionalProperties": true
		}
	}`,

	models.ArtifactEvidencePack: `{
		"type": "object"
	}`,

	models.ArtifactDrafts: `{
		"type": "object",
		"properties": {
			"messages": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"properties": {
						"subject": {"type": "string"},
						"body":    {"type": "string"}
					},
					"required": ["subject", "body"]
				}
			},
			"followups": {
				"type": "object",
				"additionalProperties": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"day":     {"type": "integer", "minimum": 0},
							"subject": {"type": "string"},
							"body":    {"type": "string"}
						},
						"required": ["day"]
					}
				}
			}
		},
		"required": ["messages"]
	}`,

	models.ArtifactFollowups: `{
		"type": "array",
		"items": {
			"type": "object",
			"properties": {
				"draft_type": {"type": "string", "minLength": 1},
				"day":        {"type": "integer", "minimum": 0},
				"due_at":     {"type": "string"},
				"status":     {"type": "string", "enum": ["pending", "sent", "skipped"]},
				"subject":    {"type": "string"},
				"body":       {"type": "string"}
			},
			"required": ["draft_type", "day", "due_at", "status"]
		}
	}`,
}
