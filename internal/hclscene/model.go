package hclscene

import "github.com/hashicorp/hcl/v2"

// fileRoot holds every top-level block a scene file may contain.
type fileRoot struct {
	Scene *sceneBlock  `hcl:"scene,block"`
	Nodes []*nodeBlock `hcl:"node,block"`
}

type sceneBlock struct {
	ID           string `hcl:"id,optional"`
	ChildContext string `hcl:"child_context,optional"`
}

type nodeBlock struct {
	Type     string       `hcl:"type,label"`
	Name     string       `hcl:"name,label"`
	Inputs   []string     `hcl:"inputs,optional"`
	Bypass   bool         `hcl:"bypass,optional"`
	Display  bool         `hcl:"display,optional"`
	Params   *paramsBlock `hcl:"params,block"`
	Children []*nodeBlock `hcl:"node,block"`
}

type paramsBlock struct {
	Body hcl.Body `hcl:",remain"`
}
