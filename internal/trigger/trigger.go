// Package trigger turns intake bucket activity into workflow executions. An
// asset delivery is complete when its folder carries a manifest plus the
// three source objects the manifest names; anything less is left alone until
// the remaining objects arrive.
package trigger

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"syndicate/internal/asset"
	"syndicate/internal/executions"
	"syndicate/internal/logging"
	"syndicate/internal/objectstore"
	"syndicate/internal/services"
)

// ManifestName is the object that marks a delivery folder as ready.
const ManifestName = "manifest.json"

// Starter begins an execution for a completed delivery. *workflow.Engine
// satisfies it.
type Starter interface {
	Execute(ctx context.Context, a asset.Asset) (*executions.Execution, error)
}

// Trigger evaluates intake objects and starts executions.
type Trigger struct {
	objects      objectstore.Store
	starter      Starter
	intakeBucket string
	logger       *slog.Logger
}

func New(objects objectstore.Store, starter Starter, intakeBucket string, logger *slog.Logger) *Trigger {
	return &Trigger{
		objects:      objects,
		starter:      starter,
		intakeBucket: intakeBucket,
		logger:       logging.NewComponentLogger(logger, "trigger"),
	}
}

// HandleObjectCreated inspects the delivery folder the new object belongs to
// and starts an execution when the folder is complete. Objects landing in
// folders that are still missing pieces are ignored without error; a
// malformed manifest is reported loudly.
func (t *Trigger) HandleObjectCreated(ctx context.Context, key string) (*executions.Execution, error) {
	folder := path.Dir(strings.Trim(key, "/"))
	if folder == "." || folder == "" {
		t.logger.Debug("object outside a delivery folder ignored", logging.String("key", key))
		return nil, nil
	}

	ready, manifest, err := t.folderReady(ctx, folder)
	if err != nil {
		return nil, err
	}
	if !ready {
		t.logger.Debug("delivery folder incomplete",
			logging.String(logging.FieldEventType, "delivery_incomplete"),
			logging.String("folder", folder),
		)
		return nil, nil
	}

	a := asset.Asset{
		ID:       folder,
		Video:    asset.ObjectRef{Bucket: t.intakeBucket, Key: manifest.Video},
		Image:    asset.ObjectRef{Bucket: t.intakeBucket, Key: manifest.Image},
		Metadata: asset.ObjectRef{Bucket: t.intakeBucket, Key: manifest.Metadata},
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}

	t.logger.Info("delivery complete, starting execution",
		logging.String(logging.FieldEventType, "delivery_complete"),
		logging.String(logging.FieldAssetID, a.ID),
	)
	return t.starter.Execute(ctx, a)
}

// folderReady reports whether the folder holds a manifest and every object
// the manifest names.
func (t *Trigger) folderReady(ctx context.Context, folder string) (bool, asset.Manifest, error) {
	manifestKey := folder + "/" + ManifestName
	exists, err := t.objects.Exists(ctx, t.intakeBucket, manifestKey)
	if err != nil {
		return false, asset.Manifest{}, err
	}
	if !exists {
		return false, asset.Manifest{}, nil
	}

	data, err := t.objects.Get(ctx, t.intakeBucket, manifestKey)
	if err != nil {
		return false, asset.Manifest{}, err
	}
	manifest, err := asset.ParseManifest(data)
	if err != nil {
		return false, asset.Manifest{}, services.Wrap(services.ErrValidation, "trigger", "manifest", "manifest at "+manifestKey+" is invalid", err)
	}

	manifest.Video = resolveManifestKey(folder, manifest.Video)
	manifest.Image = resolveManifestKey(folder, manifest.Image)
	manifest.Metadata = resolveManifestKey(folder, manifest.Metadata)

	for _, key := range []string{manifest.Video, manifest.Image, manifest.Metadata} {
		exists, err := t.objects.Exists(ctx, t.intakeBucket, key)
		if err != nil {
			return false, asset.Manifest{}, err
		}
		if !exists {
			return false, asset.Manifest{}, nil
		}
	}
	return true, manifest, nil
}

// resolveManifestKey turns a manifest entry into a full object key. Entries
// name objects within the delivery folder, but full keys that already carry
// the folder prefix are accepted as-is.
func resolveManifestKey(folder, entry string) string {
	entry = strings.TrimLeft(strings.TrimSpace(entry), "/")
	if entry == "" {
		return entry
	}
	if strings.HasPrefix(entry, folder+"/") {
		return entry
	}
	return folder + "/" + entry
}
