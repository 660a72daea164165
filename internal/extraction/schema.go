package extraction

// ToolName is the single tool the model is forced to call with every
// extraction request.
const ToolName = "report_extraction"

// ExtractionTool describes the report_extraction tool's input schema,
// mirroring models.Extraction's shape (spec.md §4.B).
func ExtractionTool() ToolDefinition {
	return ToolDefinition{
		Name:        ToolName,
		Description: "Report the structured entities, events, and metadata extracted from a financial news record.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"people": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"companies": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":          map[string]interface{}{"type": "string"},
							"ticker_hint":   map[string]interface{}{"type": "string"},
							"sector_hint":   map[string]interface{}{"type": "string"},
							"is_regulatory": map[string]interface{}{"type": "boolean"},
						},
						"required": []string{"name"},
					},
				},
				"markets": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"metrics": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":  map[string]interface{}{"type": "string"},
							"value": map[string]interface{}{"type": "number"},
							"unit":  map[string]interface{}{"type": "string"},
						},
						"required": []string{"name", "value"},
					},
				},
				"event_types": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"is_advertisement": map[string]interface{}{"type": "boolean"},
				"content_types": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"language": map[string]interface{}{"type": "string"},
				"urgency":  map[string]interface{}{"type": "string", "enum": []string{"low", "medium", "high"}},
				"confidence": map[string]interface{}{
					"type":    "number",
					"minimum": 0,
					"maximum": 1,
				},
			},
			"required": []string{"event_types", "confidence"},
		},
	}
}

// SystemPrompt is the fixed instruction set given to the model for every
// extraction call.
const SystemPrompt = `You extract structured financial-news entities and events from a single news record.
Identify mentioned people, companies (with ticker/sector hints when apparent), markets, financial metrics,
and classify the event types using the closed vocabulary provided by the caller. Flag advertisements and
non-news content types. Report your confidence in the extraction as a number between 0 and 1. Always call
the report_extraction tool exactly once; never respond with plain text.`
