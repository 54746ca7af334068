package repository

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// EncodeDataset renders the dataset document as YAML.
func EncodeDataset(dataset *models.Dataset) ([]byte, error) {
	if dataset == nil {
		dataset = models.NewDataset()
	}
	dataset.Normalize()
	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(dataset); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode dataset: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDataset parses a YAML dataset document. Unknown keys are rejected so a
// document in another layout is never mistaken for an empty dataset.
func DecodeDataset(raw []byte) (*models.Dataset, error) {
	dataset := models.NewDataset()
	if len(bytes.TrimSpace(raw)) == 0 {
		return dataset, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(dataset); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	dataset.Normalize()
	return dataset, nil
}
