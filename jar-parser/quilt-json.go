package jar_parser

import (
	"encoding/json"
)

type QuiltJson struct {
	SchemaVersion int `json:"schema_version"`
	QuiltLoader   struct {
		Group    string `json:"group"`
		Id       string `json:"id"`
		Version  string `json:"version"`
		Metadata struct {
			Name string `json:"name"`
		} `json:"metadata"`
		Depends []QuiltDependency `json:"depends"`
	} `json:"quilt_loader"`
	Minecraft struct {
		Environment string `json:"environment"`
	} `json:"minecraft"`
}

// QuiltDependency is either a bare mod id or an object with a version range.
type QuiltDependency struct {
	Id      string              `json:"id"`
	Version *FabricVersionRange `json:"versions"`
}

var _ json.Unmarshaler = &QuiltDependency{}

func (q *QuiltDependency) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &q.Id)
	}
	type plain QuiltDependency
	return json.Unmarshal(b, (*plain)(q))
}
