package store

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// recordDocument is the on-disk layout of a record file.
// Resource is a pointer so a missing key can be told apart from zero.
type recordDocument struct {
	Resource         *int  `yaml:"resource,omitempty"`
	LastEliminatedAt int64 `yaml:"lastEliminatedAt"`
	Wins             int   `yaml:"wins"`
	Losses           int   `yaml:"losses"`
	LastUpdated      int64 `yaml:"lastUpdated"`
}

// marshalRecord encodes a record as a flat YAML document.
// The id is not part of the document; it is carried by the file name.
func marshalRecord(rec Record) ([]byte, error) {
	resource := rec.Resource
	doc := recordDocument{
		Resource:         &resource,
		LastEliminatedAt: rec.LastEliminatedAt,
		Wins:             rec.Wins,
		Losses:           rec.Losses,
		LastUpdated:      rec.LastUpdated,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return data, nil
}

// unmarshalRecord decodes a record document. Missing resource falls back to
// defaultResource; negative counters and timestamps are read as zero.
func unmarshalRecord(id string, data []byte, defaultResource int) (Record, error) {
	var doc recordDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}

	rec := Record{
		ID:               id,
		Resource:         defaultResource,
		LastEliminatedAt: nonNegative64(doc.LastEliminatedAt),
		Wins:             nonNegative(doc.Wins),
		Losses:           nonNegative(doc.Losses),
		LastUpdated:      nonNegative64(doc.LastUpdated),
	}
	if doc.Resource != nil {
		rec.Resource = *doc.Resource
	}
	return rec, nil
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func nonNegative64(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
