package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/strapi-client/internal/constants"
	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// decodeJSON decodes data keeping numbers as json.Number.
func decodeJSON(data []byte, out any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	err := decoder.Decode(out)
	if err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	return nil
}

// readDocument decodes a JSON or YAML file chosen by extension.
func readDocument(path string, out any) error {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided input file
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeJSON(data, out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
		if err != nil {
			return fmt.Errorf("parsing YAML: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFileType, path)
	}
}

// readPayload returns the object given inline with --data or in --file.
func readPayload(data, file string) (map[string]any, error) {
	var payload any

	switch {
	case data != "":
		err := decodeJSON([]byte(data), &payload)
		if err != nil {
			return nil, err
		}
	case file != "":
		err := readDocument(file, &payload)
		if err != nil {
			return nil, err
		}
	default:
		return nil, constants.ErrDataRequired
	}

	object, ok := payload.(map[string]any)
	if !ok {
		return nil, constants.ErrPayloadNotObject
	}

	return object, nil
}

// wrapData puts a payload in the {"data": ...} envelope the content API
// expects, unless it already is one.
func wrapData(payload map[string]any) map[string]any {
	if _, ok := payload["data"]; ok && len(payload) == 1 {
		return payload
	}

	return map[string]any{"data": payload}
}

// loadOperations reads a batch file. Create and update payloads are wrapped
// like the create and update commands do.
func loadOperations(path string) ([]strapi.Operation, error) {
	if path == "" {
		return nil, constants.ErrFileRequired
	}

	var operations []strapi.Operation

	err := readDocument(path, &operations)
	if err != nil {
		return nil, err
	}

	for i := range operations {
		if payload, ok := operations[i].Data.(map[string]any); ok && operations[i].Type != strapi.OperationDelete {
			operations[i].Data = wrapData(payload)
		}
	}

	return operations, nil
}
