package graphcol

import (
	"encoding/json"
	"time"
)

// TimeFormat is the createdAt layout: UTC, second precision.
const TimeFormat = "2006-01-02T15:04:05Z"

// Manifest summarizes a dataset. It is written once, after the last chunk.
type Manifest struct {
	Version   int    `json:"version"`
	Namespace string `json:"namespace"`
	Dataset   string `json:"dataset"`
	Stats     Stats  `json:"stats"`
	CreatedAt string `json:"createdAt"`
}

var now = time.Now

// BuildManifest assembles the manifest for a finished dataset.
func BuildManifest(dataset, namespace string, stats Stats) Manifest {
	return Manifest{
		Version:   FormatVersion,
		Namespace: namespace,
		Dataset:   dataset,
		Stats:     stats,
		CreatedAt: now().UTC().Format(TimeFormat),
	}
}

// Encode returns the manifest as indented JSON.
func (m Manifest) Encode() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseManifest reads a manifest written by Encode.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Created parses CreatedAt.
func (m Manifest) Created() (time.Time, error) {
	return time.Parse(TimeFormat, m.CreatedAt)
}
