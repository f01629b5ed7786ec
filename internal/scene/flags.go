package scene

import (
	"context"

	"github.com/vk/cookgrid/internal/ctxlog"
)

// SetBypass turns the bypass flag on or off. A bypassed node passes its
// first input through instead of running its compute step.
func (n *Node) SetBypass(ctx context.Context, bypass bool) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed {
		return ErrNodeDisposed
	}
	if n.bypass == bypass {
		return nil
	}
	n.bypass = bypass
	s.markDirtyLocked(ctx, n.vertex())
	ctxlog.FromContext(ctx).Debug("Bypass changed.", "node", n.pathLocked(), "bypass", bypass)
	return nil
}

// SetDisplay makes n the displayed child of its parent, or clears the flag.
// A parent has at most one displayed child; setting the flag moves it away
// from the previous one. The displayed child feeds its parent's output.
func (n *Node) SetDisplay(ctx context.Context, display bool) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed {
		return ErrNodeDisposed
	}
	parent := n.parent
	if parent == nil || n.display == display {
		return nil
	}

	if !display {
		if err := s.graph.RemoveEdge(n.vertex(), parent.vertex()); err != nil {
			return err
		}
		n.display = false
		s.markDirtyLocked(ctx, parent.vertex())
		ctxlog.FromContext(ctx).Debug("Display cleared.", "node", n.pathLocked())
		return nil
	}

	if err := s.graph.AddEdge(n.vertex(), parent.vertex()); err != nil {
		return err
	}
	if prev := parent.displayChildLocked(); prev != nil {
		_ = s.graph.RemoveEdge(prev.vertex(), parent.vertex())
		prev.display = false
	}
	n.display = true
	s.markDirtyLocked(ctx, parent.vertex())
	ctxlog.FromContext(ctx).Debug("Display changed.", "node", n.pathLocked())
	return nil
}
