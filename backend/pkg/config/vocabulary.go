package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary overrides the retrieval stop words and the extraction entity
// taxonomy. Empty lists mean "use the built-in defaults".
type Vocabulary struct {
	StopWords   []string `yaml:"stop_words"`
	EntityTypes []string `yaml:"entity_types"`
}

// LoadVocabulary reads a YAML vocabulary file. An empty path yields an empty
// vocabulary.
func LoadVocabulary(path string) (*Vocabulary, error) {
	vocab := &Vocabulary{}
	if path == "" {
		return vocab, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	if err := yaml.Unmarshal(data, vocab); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file %s: %w", path, err)
	}
	return vocab, nil
}
