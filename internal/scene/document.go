package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/nodeid"
	"github.com/vk/cookgrid/internal/registry"
)

// DocumentVersion is the version written by ToDocument and the only one
// FromDocument accepts.
const DocumentVersion = 1

// Document is the serializable description of a scene.
type Document struct {
	Version      int          `json:"version" yaml:"version" msgpack:"version" validate:"eq=1"`
	SceneID      string       `json:"scene_id,omitempty" yaml:"scene_id,omitempty" msgpack:"scene_id,omitempty" validate:"omitempty,uuid"`
	ChildContext string       `json:"child_context,omitempty" yaml:"child_context,omitempty" msgpack:"child_context,omitempty"`
	Root         NodeDocument `json:"root" yaml:"root" msgpack:"root"`
}

// NodeDocument describes one node and its subtree. Params holds raw inputs;
// compound parameters are stored per component.
type NodeDocument struct {
	Name     string            `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty" validate:"omitempty,node_name"`
	Type     string            `json:"type" yaml:"type" msgpack:"type" validate:"required"`
	Params   map[string]string `json:"params,omitempty" yaml:"params,omitempty" msgpack:"params,omitempty" validate:"dive,keys,required,endkeys"`
	Inputs   []InputDocument   `json:"inputs,omitempty" yaml:"inputs,omitempty" msgpack:"inputs,omitempty" validate:"dive"`
	Flags    Flags             `json:"flags" yaml:"flags" msgpack:"flags"`
	Children []NodeDocument    `json:"children,omitempty" yaml:"children,omitempty" msgpack:"children,omitempty" validate:"dive"`
}

// InputDocument is one wired input slot. Node names a sibling.
type InputDocument struct {
	Index  int    `json:"index" yaml:"index" msgpack:"index" validate:"gte=0"`
	Node   string `json:"node" yaml:"node" msgpack:"node" validate:"required,node_name"`
	Output int    `json:"output,omitempty" yaml:"output,omitempty" msgpack:"output,omitempty" validate:"gte=0"`
}

// Flags are the node flags.
type Flags struct {
	Bypass  bool `json:"bypass,omitempty" yaml:"bypass,omitempty" msgpack:"bypass,omitempty"`
	Display bool `json:"display,omitempty" yaml:"display,omitempty" msgpack:"display,omitempty"`
}

var documentValidator = newDocumentValidator()

func newDocumentValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("node_name", func(fl validator.FieldLevel) bool {
		return nodeid.ValidName(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the document's shape. It does not check that types exist.
func (d *Document) Validate() error {
	if err := documentValidator.Struct(d); err != nil {
		return fmt.Errorf("invalid scene document: %w", err)
	}
	return nil
}

// ToDocument describes the scene's current structure and raw inputs.
func (s *Scene) ToDocument() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Document{
		Version:      DocumentVersion,
		SceneID:      s.id.String(),
		ChildContext: s.childContext,
		Root:         s.root.documentLocked(),
	}
}

func (n *Node) documentLocked() NodeDocument {
	doc := NodeDocument{
		Name:  n.name,
		Type:  n.typ.Name,
		Flags: Flags{Bypass: n.bypass, Display: n.display},
	}
	for _, p := range n.paramList {
		leaves := p.Components()
		if !p.IsCompound() {
			leaves = append(leaves, p)
		}
		for _, leaf := range leaves {
			if doc.Params == nil {
				doc.Params = make(map[string]string)
			}
			doc.Params[leaf.Name()] = leaf.Raw()
		}
	}
	for i, in := range n.inputs {
		if in.source != nil {
			doc.Inputs = append(doc.Inputs, InputDocument{Index: i, Node: in.source.name, Output: in.output})
		}
	}
	for _, c := range n.children {
		doc.Children = append(doc.Children, c.documentLocked())
	}
	return doc
}

// ToJSON encodes the scene document as indented JSON.
func (s *Scene) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s.ToDocument(), "", "  ")
}

// FromJSON decodes a scene document and builds the scene it describes.
func FromJSON(ctx context.Context, reg *registry.Registry, data []byte, opts ...Option) (*Scene, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scene document: %w", err)
	}
	return FromDocument(ctx, reg, &doc, opts...)
}

// built pairs a document node with the scene node made from it.
type built struct {
	doc  *NodeDocument
	node *Node
}

// FromDocument builds a scene from a document. The tree is created first,
// then inputs are wired, then parameters set and finally flags applied, so
// references may point anywhere in the document.
func FromDocument(ctx context.Context, reg *registry.Registry, doc *Document, opts ...Option) (*Scene, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if doc.SceneID != "" {
		id, err := uuid.Parse(doc.SceneID)
		if err != nil {
			return nil, fmt.Errorf("invalid scene id: %w", err)
		}
		opts = append([]Option{WithID(id)}, opts...)
	}
	if doc.ChildContext != "" {
		opts = append([]Option{WithChildContext(doc.ChildContext)}, opts...)
	}
	s := New(reg, opts...)

	nodes := []built{{doc: &doc.Root, node: s.root}}
	for i := 0; i < len(nodes); i++ {
		b := nodes[i]
		for ci := range b.doc.Children {
			cd := &b.doc.Children[ci]
			child, err := b.node.CreateChild(ctx, cd.Type, cd.Name)
			if err != nil {
				return nil, fmt.Errorf("create %s: %w", b.node.Path(), err)
			}
			nodes = append(nodes, built{doc: cd, node: child})
		}
	}

	for _, b := range nodes {
		for _, in := range b.doc.Inputs {
			if err := b.node.wireByName(ctx, in); err != nil {
				return nil, err
			}
		}
	}

	for _, b := range nodes {
		for _, name := range slices.Sorted(maps.Keys(b.doc.Params)) {
			if err := b.node.SetParam(ctx, name, b.doc.Params[name]); err != nil {
				return nil, fmt.Errorf("%s: set %s: %w", b.node.Path(), name, err)
			}
		}
	}

	for _, b := range nodes {
		if err := b.node.SetBypass(ctx, b.doc.Flags.Bypass); err != nil {
			return nil, err
		}
		if err := b.node.SetDisplay(ctx, b.doc.Flags.Display); err != nil {
			return nil, fmt.Errorf("%s: display: %w", b.node.Path(), err)
		}
	}
	return s, nil
}

func (n *Node) wireByName(ctx context.Context, in InputDocument) error {
	parent := n.Parent()
	if parent == nil {
		return fmt.Errorf("the scene root has no inputs")
	}
	source, ok := parent.Child(in.Node)
	if !ok {
		return fmt.Errorf("%s: input %d: %w: %s", n.Path(), in.Index, ErrNodeNotFound, in.Node)
	}
	if err := n.SetInput(ctx, in.Index, source, in.Output); err != nil {
		return fmt.Errorf("%s: input %d: %w", n.Path(), in.Index, err)
	}
	return nil
}

// ApplyParams updates raw inputs and flags from a document describing the
// scene's current structure: the same nodes, types and wiring. Parameters
// the document leaves out go back to their defaults. It returns
// ErrStructureChanged, without changing anything, when the structure
// differs. When a raw input or flag is rejected, every change already made
// is undone before the error is returned.
func (s *Scene) ApplyParams(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.RLock()
	var nodes []built
	err := s.root.matchLocked(&doc.Root, &nodes)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	var changes []paramChange
	for _, b := range nodes {
		if err := b.node.applyParams(ctx, b.doc.Params, &changes); err != nil {
			restoreParams(ctx, changes)
			return err
		}
	}

	flags := make([]Flags, len(nodes))
	for i, b := range nodes {
		flags[i] = Flags{Bypass: b.node.Bypass(), Display: b.node.Display()}
	}
	for _, b := range nodes {
		err := b.node.SetBypass(ctx, b.doc.Flags.Bypass)
		if err == nil {
			err = b.node.SetDisplay(ctx, b.doc.Flags.Display)
		}
		if err != nil {
			restoreParams(ctx, changes)
			restoreFlags(ctx, nodes, flags)
			return err
		}
	}
	if len(changes) > 0 {
		s.logDebug(ctx, "Scene parameters applied.", "changed", len(changes))
	}
	return nil
}

// matchLocked compares the node with doc and collects the pairs. Parameter
// names are checked too, so an unknown name is reported before anything is
// applied.
func (n *Node) matchLocked(doc *NodeDocument, out *[]built) error {
	path := n.pathLocked()
	if n.parent != nil && (doc.Type != n.typ.Name || doc.Name != n.name) {
		return fmt.Errorf("%s: %w", path, ErrStructureChanged)
	}
	for name := range doc.Params {
		if n.paramLocked(name) == nil {
			return fmt.Errorf("%s: %w %q", path, ErrUnknownParam, name)
		}
	}

	var inputs []InputDocument
	for i, in := range n.inputs {
		if in.source != nil {
			inputs = append(inputs, InputDocument{Index: i, Node: in.source.name, Output: in.output})
		}
	}
	docInputs := slices.Clone(doc.Inputs)
	slices.SortFunc(docInputs, func(a, b InputDocument) int { return a.Index - b.Index })
	if !slices.Equal(inputs, docInputs) || len(n.children) != len(doc.Children) {
		return fmt.Errorf("%s: %w", path, ErrStructureChanged)
	}

	*out = append(*out, built{doc: doc, node: n})
	for i, c := range n.children {
		if err := c.matchLocked(&doc.Children[i], out); err != nil {
			return err
		}
	}
	return nil
}

// paramChange is a raw input replaced by ApplyParams and the value it had.
type paramChange struct {
	node *Node
	name string
	raw  string
}

// applyParams sets the raw inputs that differ from raws and resets the rest
// to their defaults. Every parameter set is appended to changes.
func (n *Node) applyParams(ctx context.Context, raws map[string]string, changes *[]paramChange) error {
	want := make(map[string]string)
	for _, p := range n.Params() {
		if raw, ok := raws[p.Name()]; ok {
			want[p.Name()] = raw
			continue
		}
		partial := false
		for _, c := range p.Components() {
			if _, ok := raws[c.Name()]; ok {
				partial = true
			}
		}
		if !p.IsCompound() {
			want[p.Name()] = p.Default()
			continue
		}
		if !partial && p.Raw() == p.Default() {
			continue
		}
		for _, c := range p.Components() {
			raw, ok := raws[c.Name()]
			if !ok {
				raw = c.Default()
			}
			want[c.Name()] = raw
		}
	}

	for _, name := range slices.Sorted(maps.Keys(want)) {
		p, _ := n.Param(name)
		prev := p.Raw()
		if prev == want[name] {
			continue
		}
		if err := n.SetParam(ctx, name, want[name]); err != nil {
			return fmt.Errorf("%s: set %s: %w", n.Path(), name, err)
		}
		*changes = append(*changes, paramChange{node: n, name: name, raw: prev})
	}
	return nil
}

// restoreParams undoes changes newest first. Each step brings a parameter
// back to a state the scene already had, so no step can close a cycle.
func restoreParams(ctx context.Context, changes []paramChange) {
	for i := len(changes) - 1; i >= 0; i-- {
		c := changes[i]
		if err := c.node.SetParam(ctx, c.name, c.raw); err != nil {
			ctxlog.FromContext(ctx).Error("Failed to restore parameter.", "node", c.node.Path(), "param", c.name, "error", err)
		}
	}
}

// restoreFlags puts the recorded flags back. Display flags are cleared
// before any is set so a parent never gains a second display edge.
func restoreFlags(ctx context.Context, nodes []built, flags []Flags) {
	logger := ctxlog.FromContext(ctx)
	for i, b := range nodes {
		if !flags[i].Display {
			if err := b.node.SetDisplay(ctx, false); err != nil {
				logger.Error("Failed to restore display flag.", "node", b.node.Path(), "error", err)
			}
		}
	}
	for i, b := range nodes {
		if err := b.node.SetDisplay(ctx, flags[i].Display); err != nil {
			logger.Error("Failed to restore display flag.", "node", b.node.Path(), "error", err)
		}
		if err := b.node.SetBypass(ctx, flags[i].Bypass); err != nil {
			logger.Error("Failed to restore bypass flag.", "node", b.node.Path(), "error", err)
		}
	}
}

func (s *Scene) logDebug(ctx context.Context, msg string, args ...any) {
	ctxlog.FromContext(ctx).Debug(msg, append([]any{"scene", s.id.String()}, args...)...)
}

// IsStructureChange reports whether err means the document no longer
// matches the scene and the scene has to be rebuilt.
func IsStructureChange(err error) bool {
	return errors.Is(err, ErrStructureChanged)
}
