package editor

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ivlev/scaffoldhero/internal/store"
)

// KeyPrefix is prepended to the project id to form the store key.
const KeyPrefix = "editors/"

const schemaURL = "https://github.com/ivlev/scaffoldhero/schema/document.json"

//go:embed schema.json
var schemaJSON []byte

var documentSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// Key returns the store key of a project.
func Key(projectID string) string {
	return KeyPrefix + projectID
}

// Marshal encodes a document in its persisted form.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Unmarshal validates data against the document schema and decodes it.
// Nodes with an unknown type tag fail with node.ErrUnimplementedVariant.
func Unmarshal(data []byte) (*Document, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	schema, err := documentSchema()
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

// Marshal encodes the current document.
func (e *Editor) Marshal() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Marshal(e.doc)
}

// Save writes the document under Key(projectID).
func (e *Editor) Save(ctx context.Context, kv store.KV) error {
	e.mu.Lock()
	id := e.doc.Project.ID
	data, err := Marshal(e.doc)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if err := kv.Put(ctx, Key(id), data); err != nil {
		return fmt.Errorf("save project %s: %w", id, err)
	}
	return nil
}

// Load reads a project from kv. A project that was never saved yields a
// new document with that id.
func Load(ctx context.Context, kv store.KV, projectID string) (*Document, error) {
	data, err := kv.Get(ctx, Key(projectID))
	if errors.Is(err, store.ErrNotFound) {
		return NewDocument(projectID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}

	doc, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	return doc, nil
}

// ListProjects returns the ids of saved projects.
func ListProjects(ctx context.Context, kv store.KV) ([]string, error) {
	keys, err := kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, KeyPrefix))
	}
	return ids, nil
}
