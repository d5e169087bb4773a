package asset_engine

import (
	"encoding/json"
	"path"
)

const (
	AssetsDir    = "assets"
	ResourcesURL = "https://resources.download.minecraft.net/"
)

var (
	ObjectsDir = path.Join(AssetsDir, "objects")
	IndexesDir = path.Join(AssetsDir, "indexes")
	VirtualDir = path.Join(AssetsDir, "virtual", "legacy")
)

type AssetIndex struct {
	Objects        map[string]Object `json:"objects"`
	Virtual        bool              `json:"virtual,omitempty"`
	MapToResources bool              `json:"map_to_resources,omitempty"`
}

type Object struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

func ParseIndex(raw []byte) (*AssetIndex, error) {
	var idx AssetIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func IndexPath(id string) string {
	return path.Join(IndexesDir, id+".json")
}

// ObjectPath is the content addressed location of an object.
func ObjectPath(hash string) string {
	return path.Join(ObjectsDir, hashPrefix(hash), hash)
}

func ObjectURL(base, hash string) string {
	if base == "" {
		base = ResourcesURL
	}
	if base[len(base)-1] != '/' {
		base += "/"
	}
	return base + hashPrefix(hash) + "/" + hash
}

func hashPrefix(hash string) string {
	if len(hash) < 2 {
		return hash
	}
	return hash[:2]
}

// IsLegacyIndex reports whether objects must also be laid out by logical name.
func IsLegacyIndex(id string, idx *AssetIndex) bool {
	if id == "legacy" || id == "pre-1.6" {
		return true
	}
	return idx != nil && (idx.Virtual || idx.MapToResources)
}
