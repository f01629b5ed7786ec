package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/hclscene"
	"github.com/vk/cookgrid/internal/scene"
	"github.com/vk/cookgrid/internal/serialization"
)

// loadDocument reads the scene description at path: a directory of HCL
// files, one HCL file, or a serialized scene document.
func loadDocument(ctx context.Context, path string) (*scene.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access scene path: %w", err)
	}
	if info.IsDir() {
		return hclscene.LoadDir(ctx, path)
	}
	if filepath.Ext(path) == hclscene.Extension {
		return hclscene.LoadFile(ctx, path)
	}

	var doc scene.Document
	if err := serialization.ReadFile(path, &doc); err != nil {
		return nil, fmt.Errorf("failed to read scene document %s: %w", path, err)
	}
	return &doc, nil
}

// applyDocument brings the app's scene in line with doc. Parameter-only
// changes are applied in place so clean nodes keep their cache; any other
// change rebuilds the scene.
func (a *App) applyDocument(ctx context.Context, doc *scene.Document) error {
	logger := ctxlog.FromContext(ctx)
	if current := a.Scene(); current != nil {
		err := current.ApplyParams(ctx, doc)
		if err == nil {
			logger.Info("Scene parameters updated in place.", "scene", current.ID().String())
			return nil
		}
		if !scene.IsStructureChange(err) {
			return err
		}
		logger.Info("Scene structure changed, rebuilding.", "reason", err.Error())
	}

	metrics := prometheus.NewRegistry()
	s, err := scene.FromDocument(ctx, a.registry, doc, scene.WithRegisterer(metrics))
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}

	a.mu.Lock()
	a.scene = s
	a.sceneMetrics = metrics
	a.status.Builds++
	a.mu.Unlock()
	logger.Info("Scene built.", "scene", s.ID().String(), "nodes", s.Len())
	return nil
}

// saveDocument writes the scene document to path in the format its
// extension names.
func (a *App) saveDocument(ctx context.Context, path string) error {
	s := a.Scene()
	if s == nil {
		return fmt.Errorf("no scene loaded")
	}
	if err := serialization.WriteFile(path, s.ToDocument()); err != nil {
		return fmt.Errorf("failed to save scene to %s: %w", path, err)
	}
	ctxlog.FromContext(ctx).Info("Scene saved.", "path", path)
	return nil
}
