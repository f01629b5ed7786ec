package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
)

// wiredTypesLocked returns the output types feeding each input slot, with
// TypeNone for empty slots.
func (n *Node) wiredTypesLocked() []connection.Type {
	types := make([]connection.Type, len(n.inputs))
	for i, in := range n.inputs {
		if in.source != nil {
			types[i] = in.source.outputTypeLocked(in.output)
		}
	}
	return types
}

func (n *Node) outputTypeLocked(index int) connection.Type {
	return n.typ.IO.OutputTypeAt(index, n.wiredTypesLocked())
}

func (n *Node) numOutputs() int {
	return len(n.typ.IO.Outputs)
}

// trimInputs drops empty slots at the end of the input list.
func (n *Node) trimInputs() {
	end := len(n.inputs)
	for end > 0 && n.inputs[end-1].source == nil {
		end--
	}
	n.inputs = n.inputs[:end]
}

// Inputs returns the wired input slots in index order.
func (n *Node) Inputs() []Input {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()

	var out []Input
	for i, in := range n.inputs {
		if in.source != nil {
			out = append(out, Input{Index: i, Source: in.source, Output: in.output})
		}
	}
	return out
}

// Consumers returns the siblings wired to any of n's outputs.
func (n *Node) Consumers() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.consumersLocked()
}

func (n *Node) consumersLocked() []*Node {
	if n.parent == nil {
		return nil
	}
	var out []*Node
	for _, sib := range n.parent.children {
		for _, in := range sib.inputs {
			if in.source == n {
				out = append(out, sib)
				break
			}
		}
	}
	return out
}

// NamedInputConnectionPoints lists the node's input slots with the types
// they currently expect.
func (n *Node) NamedInputConnectionPoints() []connection.Point {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.io.NamedInputConnectionPoints()
}

// NamedOutputConnectionPoints lists the node's outputs with their current
// types.
func (n *Node) NamedOutputConnectionPoints() []connection.Point {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.io.NamedOutputConnectionPoints()
}

// SetInput wires output outputIndex of source into input slot index. A nil
// source disconnects the slot. Wiring is only allowed between siblings. On
// failure the wiring is left unchanged.
func (n *Node) SetInput(ctx context.Context, index int, source *Node, outputIndex int) error {
	s := n.scene
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.disposed || (source != nil && source.disposed) {
		return ErrNodeDisposed
	}
	if source == nil {
		return n.disconnectLocked(ctx, index)
	}
	if err := n.validateWiringLocked(index, source, outputIndex); err != nil {
		return err
	}

	if err := s.graph.AddEdge(source.vertex(), n.vertex()); err != nil {
		return err
	}
	if index < len(n.inputs) && n.inputs[index].source != nil {
		if err := s.graph.RemoveEdge(n.inputs[index].source.vertex(), n.vertex()); err != nil {
			return err
		}
	}
	for len(n.inputs) <= index {
		n.inputs = append(n.inputs, input{})
	}
	n.inputs[index] = input{source: source, output: outputIndex}
	s.markDirtyLocked(ctx, n.vertex())

	ctxlog.FromContext(ctx).Debug("Input connected.", "node", n.pathLocked(), "index", index, "source", source.pathLocked(), "output", outputIndex)
	return nil
}

func (n *Node) validateWiringLocked(index int, source *Node, outputIndex int) error {
	if source == n {
		return n.scene.graph.AddEdge(n.vertex(), n.vertex())
	}
	if source.parent != n.parent {
		return fmt.Errorf("wire %s into %s: %w", source.pathLocked(), n.pathLocked(), ErrNotSibling)
	}
	if outputIndex < 0 || outputIndex >= source.numOutputs() {
		return fmt.Errorf("wire %s into %s: node has no output %d", source.pathLocked(), n.pathLocked(), outputIndex)
	}

	sourceType := source.outputTypeLocked(outputIndex)
	if err := n.io.ValidateWiring(index, sourceType); err != nil {
		return n.annotate(err)
	}

	// A generic node may change its output type; its consumers must still
	// accept it.
	hypo := n.io.Hypothetical(index, sourceType)
	for _, consumer := range n.consumersLocked() {
		wired := consumer.wiredTypesLocked()
		for i, in := range consumer.inputs {
			if in.source == n {
				wired[i] = n.typ.IO.OutputTypeAt(in.output, hypo)
			}
		}
		if err := consumer.io.ValidateTypes(wired); err != nil {
			return consumer.annotate(err)
		}
	}
	return nil
}

// annotate fills the node path into connection errors.
func (n *Node) annotate(err error) error {
	var mismatch *connection.TypeMismatchError
	if errors.As(err, &mismatch) {
		mismatch.Node = n.pathLocked()
	}
	var card *connection.CardinalityError
	if errors.As(err, &card) {
		card.Node = n.pathLocked()
	}
	return err
}

func (n *Node) disconnectLocked(ctx context.Context, index int) error {
	if index < 0 || index >= len(n.inputs) || n.inputs[index].source == nil {
		return nil
	}
	s := n.scene
	if err := s.graph.RemoveEdge(n.inputs[index].source.vertex(), n.vertex()); err != nil {
		return err
	}
	n.inputs[index] = input{}
	n.trimInputs()
	s.markDirtyLocked(ctx, n.vertex())
	ctxlog.FromContext(ctx).Debug("Input disconnected.", "node", n.pathLocked(), "index", index)
	return nil
}
