// Package evals grades the assistant against a golden dataset: routing
// (intent and tool choice), entity extraction, and write-safety compliance.
package evals

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed golden_samples.json
var goldenSamplesJSON []byte

// Sample is one golden test case. ExpectedTool is nil for cases that should
// end in a direct answer or clarification with no tool involved.
type Sample struct {
	Input            string         `json:"input"`
	ExpectedIntent   string         `json:"expected_intent"`
	ExpectedTool     *string        `json:"expected_tool"`
	ExpectedEntities map[string]any `json:"expected_entities"`
}

// LoadGoldenSamples returns the embedded golden dataset.
func LoadGoldenSamples() ([]Sample, error) {
	return parseSamples(goldenSamplesJSON)
}

// LoadSamplesFile reads a golden dataset from disk, for running custom case
// sets without rebuilding.
func LoadSamplesFile(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples file: %w", err)
	}
	return parseSamples(data)
}

func parseSamples(data []byte) ([]Sample, error) {
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("golden samples dataset must be a list of test case objects: %w", err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("golden samples dataset is empty")
	}
	for i, s := range samples {
		if s.Input == "" || s.ExpectedIntent == "" {
			return nil, fmt.Errorf("golden sample %d is missing input or expected_intent", i+1)
		}
	}
	return samples, nil
}
