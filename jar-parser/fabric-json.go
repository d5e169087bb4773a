package jar_parser

// FabricJson is the subset of fabric.mod.json read for the pre-launch check.
type FabricJson struct {
	SchemaVersion int                            `json:"schemaVersion"`
	Id            string                         `json:"id"`
	Version       string                         `json:"version"`
	Name          string                         `json:"name"`
	Environment   string                         `json:"environment"`
	Depends       map[string]*FabricVersionRange `json:"depends"`
}
