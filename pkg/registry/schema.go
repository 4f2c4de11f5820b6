// pkg/registry/schema.go
package registry

// CatalogRegistry is the on-disk override for intent catalogs and reply
// messages. Screens that are absent keep their built-in catalog.
type CatalogRegistry struct {
	Version     string                   `json:"version"`
	LastUpdated string                   `json:"lastUpdated"`
	Screens     map[string]ScreenCatalog `json:"screens"`
	Messages    map[string]string        `json:"messages"`
}

type ScreenCatalog struct {
	Flow             []string   `json:"flow"`
	ContinuationCues []string   `json:"continuationCues"`
	Rules            []RuleSpec `json:"rules"`
}

type RuleSpec struct {
	Intent   string   `json:"intent"`
	Class    string   `json:"class"`
	Keywords []string `json:"keywords"`
}

const registrySchema = `{
  "type": "object",
  "required": ["version", "screens"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "lastUpdated": {"type": "string"},
    "screens": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["rules"],
        "properties": {
          "flow": {"type": "array", "items": {"type": "string", "minLength": 1}},
          "continuationCues": {"type": "array", "items": {"type": "string"}},
          "rules": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["intent", "class", "keywords"],
              "properties": {
                "intent": {"type": "string", "minLength": 1},
                "class": {"type": "string", "enum": ["transition", "flow", "greeting", "general"]},
                "keywords": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
              }
            }
          }
        }
      }
    },
    "messages": {"type": "object", "additionalProperties": {"type": "string"}}
  }
}`
