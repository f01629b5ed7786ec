// Package hclscene reads scene descriptions written in HCL:
//
//	scene {
//	  child_context = "value"
//	}
//
//	node "const" "a" {
//	  params {
//	    value = 5
//	  }
//	}
//
//	node "add" "b" {
//	  inputs  = ["a"]
//	  display = true
//	  params {
//	    addend = a * 2
//	  }
//	}
//
// Parameter values are kept as source text and parsed by the scene like any
// other raw input, so expressions survive loading unevaluated.
package hclscene

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/fsutil"
	"github.com/vk/cookgrid/internal/scene"
)

// Extension is the file extension of scene files.
const Extension = ".hcl"

// LoadFile reads one scene file.
func LoadFile(ctx context.Context, path string) (*scene.Document, error) {
	return load(ctx, []string{path})
}

// LoadDir reads every scene file below dir and merges them into one scene.
// Files are read in lexical order; at most one may hold a scene block.
func LoadDir(ctx context.Context, dir string) (*scene.Document, error) {
	files, err := fsutil.FindFilesByExtension(dir, Extension)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", Extension, dir)
	}
	return load(ctx, files)
}

func load(ctx context.Context, files []string) (*scene.Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL scene loader started.", "file_count", len(files))

	doc := &scene.Document{
		Version: scene.DocumentVersion,
		Root:    scene.NodeDocument{Type: scene.RootTypeName},
	}
	parser := hclparse.NewParser()
	sceneFile := ""

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Scene != nil {
			if sceneFile != "" {
				return nil, fmt.Errorf("%s: scene block already defined in %s", file, sceneFile)
			}
			sceneFile = file
			doc.SceneID = root.Scene.ID
			doc.ChildContext = root.Scene.ChildContext
		}

		for _, nb := range root.Nodes {
			nd, err := translateNode(hclFile.Bytes, nb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			doc.Root.Children = append(doc.Root.Children, nd)
		}
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL scene loading complete.", "nodes", len(doc.Root.Children))
	return doc, nil
}

func translateNode(src []byte, nb *nodeBlock) (scene.NodeDocument, error) {
	nd := scene.NodeDocument{
		Name:  nb.Name,
		Type:  nb.Type,
		Flags: scene.Flags{Bypass: nb.Bypass, Display: nb.Display},
	}

	inputs, err := parseInputs(nb.Inputs)
	if err != nil {
		return nd, fmt.Errorf("node %q: %w", nb.Name, err)
	}
	nd.Inputs = inputs

	if nb.Params != nil {
		attrs, diags := nb.Params.Body.JustAttributes()
		if diags.HasErrors() {
			return nd, fmt.Errorf("node %q: params: %w", nb.Name, diags)
		}
		for name, attr := range attrs {
			raw, err := rawSource(src, attr.Expr)
			if err != nil {
				return nd, fmt.Errorf("node %q: param %q: %w", nb.Name, name, err)
			}
			if nd.Params == nil {
				nd.Params = make(map[string]string, len(attrs))
			}
			nd.Params[name] = raw
		}
	}

	for _, child := range nb.Children {
		cd, err := translateNode(src, child)
		if err != nil {
			return nd, fmt.Errorf("node %q: %w", nb.Name, err)
		}
		nd.Children = append(nd.Children, cd)
	}
	return nd, nil
}
