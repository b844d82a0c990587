package sources

import (
	"encoding/json"
)

// SourceMap is the standard v3 source map shape, carried opaquely: the
// bundler core never decodes mappings, it only passes maps between loaders
// and attaches them to built sources.
type SourceMap struct {
	Version        int      `json:"version" msgpack:"version"`
	File           string   `json:"file,omitempty" msgpack:"file"`
	Sources        []string `json:"sources" msgpack:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty" msgpack:"sourcesContent"`
	Names          []string `json:"names" msgpack:"names"`
	Mappings       string   `json:"mappings" msgpack:"mappings"`
}

// SourceMapFromJSON decodes a serialized source map.
func SourceMapFromJSON(data []byte) (*SourceMap, error) {
	var m SourceMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ToJSON serializes the map.
func (m *SourceMap) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
