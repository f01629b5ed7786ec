package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/scene"
	"golang.org/x/sync/errgroup"
)

// Run loads the scene, cooks it and writes the results. In watch mode it
// then blocks, re-cooking on every change, until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx)
		defer a.closeHealthcheckServer(ctx)
	}

	doc, err := loadDocument(ctx, a.config.ScenePath)
	if err != nil {
		return err
	}
	if err := a.applyDocument(ctx, doc); err != nil {
		return err
	}

	a.logger.Info("🚀 Cooking scene...", "path", a.config.ScenePath)
	cookErr := a.cook(ctx)

	if a.config.OutPath != "" {
		if err := a.saveDocument(ctx, a.config.OutPath); err != nil {
			return errors.Join(cookErr, err)
		}
	}

	if !a.config.Watch {
		a.logger.Debug("App.Run method finished.")
		return cookErr
	}
	if cookErr != nil {
		a.logger.Warn("Initial cook failed, watching for fixes.", "error", cookErr)
	}
	return a.watch(ctx)
}

// targets returns the nodes to cook: the configured path, else the root's
// display child, else every child of the root.
func (a *App) targets(s *scene.Scene) ([]*scene.Node, error) {
	if a.config.CookPath != "" {
		n, err := s.NodeByPath(a.config.CookPath)
		if err != nil {
			return nil, fmt.Errorf("cook target: %w", err)
		}
		return []*scene.Node{n}, nil
	}
	if n, ok := s.Root().DisplayChild(); ok {
		return []*scene.Node{n}, nil
	}
	return s.Root().Children(), nil
}

// cook computes the targets on up to WorkerCount goroutines and writes one
// JSON object mapping node paths to values. Failed nodes are logged and left
// out.
func (a *App) cook(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s := a.Scene()
	targets, err := a.targets(s)
	if err != nil {
		a.recordCook(1, err)
		return err
	}

	var (
		mu      sync.Mutex
		results = make(map[string]json.RawMessage, len(targets))
		errs    []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.WorkerCount)
	for _, n := range targets {
		g.Go(func() error {
			encoded, err := cookOne(gctx, n)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Cook failed.", "node", n.Path(), "error", err)
				errs = append(errs, err)
				return nil
			}
			results[n.Path()] = encoded
			return nil
		})
	}
	_ = g.Wait()

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(a.outW, "%s\n", out); err != nil {
		return err
	}

	cookErr := errors.Join(errs...)
	a.recordCook(len(errs), cookErr)
	logger.Info("🏁 Cook finished.", "nodes", len(targets), "failed", len(errs))
	return cookErr
}

func cookOne(ctx context.Context, n *scene.Node) (json.RawMessage, error) {
	v, err := n.Compute(ctx)
	if err != nil {
		return nil, err
	}
	encoded, err := connection.MarshalJSON(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", n.Path(), err)
	}
	return encoded, nil
}
