package library

import (
	"encoding/json"
	"fmt"

	"github.com/coolbeans/listenconv/pkg/types"
)

// SerializeDocument converts a listening test to indented JSON.
func SerializeDocument(doc *types.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DeserializeDocument decodes a listening test from JSON.
func DeserializeDocument(data []byte) (*types.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	if doc.Parts.Sections == nil {
		doc.Parts.Sections = []types.Section{}
	}

	return &doc, nil
}
