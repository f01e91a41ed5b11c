package testsupport

import (
	"context"
	"testing"

	"syndicate/internal/asset"
	"syndicate/internal/config"
	"syndicate/internal/executions"
	"syndicate/internal/objectstore"
)

// MustOpenStore opens an executions.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *executions.Store {
	t.Helper()

	store, err := executions.Open(cfg)
	if err != nil {
		t.Fatalf("executions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedIntakeAsset places a manifest and the three referenced source objects
// for one asset into the intake bucket and returns the parsed asset.
func SeedIntakeAsset(t testing.TB, store objectstore.Store, bucket, assetID string) asset.Asset {
	t.Helper()

	ctx := context.Background()
	a := asset.Asset{
		ID:       assetID,
		Video:    asset.ObjectRef{Bucket: bucket, Key: assetID + "/video.mp4"},
		Image:    asset.ObjectRef{Bucket: bucket, Key: assetID + "/cover.png"},
		Metadata: asset.ObjectRef{Bucket: bucket, Key: assetID + "/metadata.json"},
	}
	manifest := []byte(`{
  "Video": "` + a.Video.Key + `",
  "Image": "` + a.Image.Key + `",
  "Metadata": "` + a.Metadata.Key + `"
}`)

	objects := map[string][]byte{
		assetID + "/manifest.json": manifest,
		a.Video.Key:                []byte("video bytes"),
		a.Image.Key:                PNGBytes(t, 16, 16),
		a.Metadata.Key:             []byte(`{"title":"Test Asset","assetId":"` + assetID + `"}`),
	}
	for key, content := range objects {
		if err := store.Put(ctx, bucket, key, content); err != nil {
			t.Fatalf("seed %s/%s: %v", bucket, key, err)
		}
	}
	return a
}
