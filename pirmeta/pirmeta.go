// Package pirmeta describes the bucket metadata the server exposes
// alongside query/answer traffic (spec §6 "bucket-metadata-JSON").
package pirmeta

import "encoding/json"

// MetadataVersion is bumped whenever the JSON layout below changes in a way
// clients must be aware of.
const MetadataVersion = 1

// BucketMetadata describes one configured database bucket: its setup UUID,
// item shape, and scheme.
type BucketMetadata struct {
	Version    int    `json:"version"`
	UUID       string `json:"uuid"`
	NumItems   int    `json:"numItems"`
	ItemSize   int    `json:"itemSize"`
	Scheme     string `json:"scheme"` // "spiralpir" or "doublepir"
	ParamsName string `json:"paramsName"`

	GlobalVersion uint64 `json:"global_version"` // parsed and exposed, not interpreted
}

// Marshal serializes m as indented JSON (spec §6's bucket metadata is a
// human-inspectable JSON document, not a binary wire format).
func (m BucketMetadata) Marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// Unmarshal parses a BucketMetadata document.
func Unmarshal(data []byte) (BucketMetadata, error) {
	var m BucketMetadata
	err := json.Unmarshal(data, &m)
	return m, err
}
