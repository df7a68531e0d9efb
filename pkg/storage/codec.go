package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dhima/usage-log/pkg/logging"
	"github.com/dhima/usage-log/pkg/models"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

const stateSchemaJSON = `{
	"type": "object",
	"properties": {
		"events": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["time", "type"],
				"properties": {
					"time": {"type": "integer"},
					"type": {"type": "string"},
					"properties": {"type": ["object", "null"]}
				}
			}
		},
		"lastCleaned": {"type": ["integer", "null"]}
	}
}`

var stateSchema = mustCompileSchema(stateSchemaJSON)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid usage state schema: %v", err))
	}
	return schema
}

// EncodeState serialises a state to its persisted JSON shape.
func EncodeState(state models.State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode usage state: %w", err)
	}
	return data, nil
}

// DecodeState parses a persisted blob. An empty blob or JSON null decodes to
// nil; anything that does not match the state schema is ErrMalformedState.
func DecodeState(data []byte) (*models.State, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	result, err := stateSchema.Validate(gojsonschema.NewBytesLoader(trimmed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedState, strings.Join(errorMessages, "; "))
	}

	var state models.State
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	return &state, nil
}

// decodeOrAbsent decodes a blob read by a backend, logging and discarding it
// when it is malformed.
func decodeOrAbsent(data []byte, logger logging.Logger) *models.State {
	state, err := DecodeState(data)
	if err != nil {
		logger.Warn("discarding malformed usage state", zap.Error(err), zap.Int("bytes", len(data)))
		return nil
	}
	return state
}
