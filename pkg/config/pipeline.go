// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// PipelineFile overrides agent settings. Example:
//
//	model: gpt-4o
//	agents:
//	  research_analyst:
//	    model: ${RESEARCH_MODEL:-gpt-4o-mini}
//	    instruction: |
//	      Find the single most relevant news story for the query.
type PipelineFile struct {
	// Model replaces MODEL_NAME for every agent.
	Model string `yaml:"model,omitempty"`

	Temperature *float64 `yaml:"temperature,omitempty"`

	// Agents is keyed by agent id (research_analyst, source_scrapper, ...).
	Agents map[string]AgentOverride `yaml:"agents,omitempty"`
}

// AgentOverride replaces parts of one agent's definition.
type AgentOverride struct {
	Instruction   string   `yaml:"instruction,omitempty"`
	Model         string   `yaml:"model,omitempty"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty"`
}

// LoadPipelineFile reads and parses a pipeline file.
func LoadPipelineFile(path string) (*PipelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file %s: %w", path, err)
	}
	pf, err := ParsePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pf, nil
}

// ParsePipeline parses pipeline YAML. Scalar values may reference
// environment variables as $VAR, ${VAR} or ${VAR:-default}.
func ParsePipeline(data []byte) (*PipelineFile, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	pf := &PipelineFile{}
	if doc.Kind == 0 {
		return pf, nil
	}
	expandNode(&doc)

	expanded, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode pipeline: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(pf); err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	for id, o := range pf.Agents {
		if o.MaxIterations < 0 {
			return nil, fmt.Errorf("agent %s: max_iterations must not be negative", id)
		}
	}
	return pf, nil
}

func expandNode(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.Tag != "!!binary" {
		n.Value = ExpandEnv(n.Value)
		return
	}
	for _, c := range n.Content {
		expandNode(c)
	}
}

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	envSimple      = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// ExpandEnv substitutes environment variables in s. A default applies when
// the variable is unset or empty.
func ExpandEnv(s string) string {
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		return parts[2]
	})
	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envBraced.FindStringSubmatch(match)[1])
	})
	return envSimple.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envSimple.FindStringSubmatch(match)[1])
	})
}
