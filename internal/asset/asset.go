package asset

import (
	"encoding/json"
	"strings"

	"syndicate/internal/services"
)

// ObjectRef points at one object in a store.
type ObjectRef struct {
	Bucket string `json:"bucketName"`
	Key    string `json:"objectKey"`
}

// Asset is the immutable input to one workflow execution. The ID is the
// intake folder path, which makes it unique per delivery.
type Asset struct {
	ID       string    `json:"AssetId"`
	Video    ObjectRef `json:"Video"`
	Image    ObjectRef `json:"Image"`
	Metadata ObjectRef `json:"Metadata"`
}

// Validate checks the asset carries everything an execution needs.
func (a Asset) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return services.Wrap(services.ErrValidation, "asset", "validate", "asset id is required", nil)
	}
	refs := []struct {
		name string
		ref  ObjectRef
	}{
		{"video", a.Video},
		{"image", a.Image},
		{"metadata", a.Metadata},
	}
	for _, entry := range refs {
		if strings.TrimSpace(entry.ref.Bucket) == "" || strings.TrimSpace(entry.ref.Key) == "" {
			return services.Wrap(services.ErrValidation, "asset", "validate", entry.name+" reference is incomplete", nil)
		}
	}
	return nil
}

// Manifest declares the object keys a delivery folder must contain.
type Manifest struct {
	Video    string `json:"Video"`
	Image    string `json:"Image"`
	Metadata string `json:"Metadata"`
}

// ParseManifest decodes a manifest document and rejects incomplete ones.
func ParseManifest(data []byte) (Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, services.Wrap(services.ErrValidation, "asset", "parse manifest", "malformed manifest", err)
	}
	if strings.TrimSpace(manifest.Video) == "" ||
		strings.TrimSpace(manifest.Image) == "" ||
		strings.TrimSpace(manifest.Metadata) == "" {
		return Manifest{}, services.Wrap(services.ErrValidation, "asset", "parse manifest", "manifest must name video, image, and metadata objects", nil)
	}
	return manifest, nil
}
