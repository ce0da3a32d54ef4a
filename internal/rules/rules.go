// Package rules loads the knowledge rule that tells the generation model how
// to coach and which JSON shape to answer with.
package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed coaching_rules.yaml
var defaultDocument []byte

var ErrInvalidRule = errors.New("invalid knowledge rule")

// KnowledgeRule is read-only after Parse; accessors hand out copies.
type KnowledgeRule struct {
	systemInstruction string
	principles        []string
	schema            string
}

type document struct {
	SystemInstruction  string   `yaml:"system_instruction"`
	CoachingPrinciples []string `yaml:"coaching_principles"`
	JSONSchema         string   `yaml:"json_schema"`
}

// Load reads the rule document at path, or the embedded default when path is
// empty.
func Load(path string) (KnowledgeRule, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return KnowledgeRule{}, fmt.Errorf("read rule file: %w", err)
	}
	return Parse(b)
}

func Default() (KnowledgeRule, error) {
	return Parse(defaultDocument)
}

func Parse(b []byte) (KnowledgeRule, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return KnowledgeRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if strings.TrimSpace(doc.SystemInstruction) == "" {
		return KnowledgeRule{}, fmt.Errorf("%w: system_instruction is empty", ErrInvalidRule)
	}

	principles := make([]string, 0, len(doc.CoachingPrinciples))
	for _, p := range doc.CoachingPrinciples {
		if p = strings.TrimSpace(p); p != "" {
			principles = append(principles, p)
		}
	}

	schema := bytes.TrimSpace([]byte(doc.JSONSchema))
	if len(schema) == 0 || schema[0] != '{' || !json.Valid(schema) {
		return KnowledgeRule{}, fmt.Errorf("%w: json_schema must be a JSON object", ErrInvalidRule)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, schema, "", "  "); err != nil {
		return KnowledgeRule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	return KnowledgeRule{
		systemInstruction: strings.TrimSpace(doc.SystemInstruction),
		principles:        principles,
		schema:            pretty.String(),
	}, nil
}

func (r KnowledgeRule) SystemInstruction() string { return r.systemInstruction }

func (r KnowledgeRule) Principles() []string {
	out := make([]string, len(r.principles))
	copy(out, r.principles)
	return out
}

// Schema returns the JSON schema pretty-printed with two-space indentation.
func (r KnowledgeRule) Schema() string { return r.schema }
