package graph

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/outreachflow/campaignflow/internal/domain"
)

// workflowSchema is the JSON Schema a campaign's workflow document must
// satisfy before being parsed into domain types (spec §3, §6).
const workflowSchema = `{
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string"},
          "type": {"type": "string"}
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "source", "target"],
        "properties": {
          "id": {"type": "string"},
          "source": {"type": "string"},
          "target": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(workflowSchema)

// Load validates raw workflow JSON against the engine's schema and
// parses it into a *domain.Workflow. A campaign's workflow document is
// write-once, so this is only ever called once per campaign lifetime
// plus however many times the engine needs to re-read it across ticks.
func Load(raw []byte) (*domain.Workflow, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate workflow document: %w", err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("workflow document failed schema validation: %v", result.Errors())
	}

	var wf domain.Workflow

	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow document: %w", err)
	}

	return &wf, nil
}

// Loader resolves a campaign's workflow document location to its
// parsed graph. The concrete storage medium (object storage, local
// disk) is an out-of-scope external collaborator (spec §1); this
// interface is all the rest of the engine depends on.
type Loader interface {
	Load(location string) (*domain.Workflow, error)
}
