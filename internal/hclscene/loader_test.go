package hclscene_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/hclscene"
	"github.com/vk/cookgrid/internal/scene"
	"github.com/vk/cookgrid/internal/testutil"
	"github.com/vk/cookgrid/modules/group"
	"github.com/vk/cookgrid/modules/numeric"
	"github.com/vk/cookgrid/modules/vector"
)

const sampleScene = `
	scene {
	  child_context = "value"
	}

	node "const" "a" {
	  params {
	    value = 5
	  }
	}

	node "add" "b" {
	  inputs  = ["a"]
	  display = true
	  params {
	    addend = a * 2
	  }
	}
`

func TestLoadFile(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": sampleScene})
	h := testutil.NewHarness(t)

	doc, err := hclscene.LoadFile(h.Ctx, filepath.Join(dir, "main.hcl"))
	require.NoError(t, err)

	want := &scene.Document{
		Version:      scene.DocumentVersion,
		ChildContext: "value",
		Root: scene.NodeDocument{
			Type: scene.RootTypeName,
			Children: []scene.NodeDocument{
				{Name: "a", Type: "const", Params: map[string]string{"value": "5"}},
				{
					Name:   "b",
					Type:   "add",
					Params: map[string]string{"addend": "a * 2"},
					Inputs: []scene.InputDocument{{Index: 0, Node: "a"}},
					Flags:  scene.Flags{Display: true},
				},
			},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("unexpected document (-want +got):\n%s", diff)
	}
}

func TestLoadDir_BuildsScene(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{
		"01-values.hcl": sampleScene,
		"02-group.hcl": `
			node "group" "g" {
			  display = false
			  node "vec3" "v" {
			    params {
			      value = "[1, ch(\"../../a/value\"), 3]"
			    }
			  }
			  node "length" "len" {
			    inputs  = ["v"]
			    display = true
			  }
			}

			node "sum" "total" {
			  inputs = ["a", "", "b[0]"]
			}
		`,
	})
	h := testutil.NewHarness(t, &numeric.Module{}, &vector.Module{}, &group.Module{})

	doc, err := hclscene.LoadDir(h.Ctx, dir)
	require.NoError(t, err)
	require.Len(t, doc.Root.Children, 4)
	require.Equal(t, []scene.InputDocument{{Index: 0, Node: "a"}, {Index: 2, Node: "b"}}, doc.Root.Children[3].Inputs)

	s, err := scene.FromDocument(h.Ctx, h.Registry, doc)
	require.NoError(t, err)

	b, err := s.NodeByPath("/b")
	require.NoError(t, err)
	v, err := b.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 15, v)

	total, err := s.NodeByPath("/total")
	require.NoError(t, err)
	v, err = total.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 20, v)

	g, err := s.NodeByPath("/g")
	require.NoError(t, err)
	v, err = g.Compute(h.Ctx)
	require.NoError(t, err)
	testutil.RequireNumber(t, 5.916079783099616, v)
}

func TestLoad_RawSource(t *testing.T) {
	dir := testutil.WriteFiles(t, map[string]string{"main.hcl": `
		node "print" "p" {
		  params {
		    label    = "plain text"
		    template = "value is ${a}"
		    wrapped  = "${a}"
		    list     = [1, 2, 3]
		    call     = ch("../a/value") + 1
		  }
		}
	`})
	h := testutil.NewHarness(t)

	doc, err := hclscene.LoadDir(h.Ctx, dir)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"label":    "plain text",
		"template": "value is ${a}",
		"wrapped":  "${a}",
		"list":     "[1, 2, 3]",
		"call":     `ch("../a/value") + 1`,
	}, doc.Root.Children[0].Params)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "syntax error",
			files: map[string]string{"a.hcl": `node "const" {`},
			want:  "failed to parse HCL file",
		},
		{
			name:  "unknown block",
			files: map[string]string{"a.hcl": `step "x" {}`},
			want:  "failed to decode HCL file",
		},
		{
			name:  "missing name label",
			files: map[string]string{"a.hcl": `node "const" {}`},
			want:  "failed to decode HCL file",
		},
		{
			name: "two scene blocks",
			files: map[string]string{
				"a.hcl": `scene {}`,
				"b.hcl": `scene {}`,
			},
			want: "scene block already defined",
		},
		{
			name:  "bad input entry",
			files: map[string]string{"a.hcl": `node "add" "b" { inputs = ["../a"] }`},
			want:  "is not a sibling name",
		},
		{
			name:  "invalid node name",
			files: map[string]string{"a.hcl": `node "const" "9lives" {}`},
			want:  "invalid scene document",
		},
		{
			name:  "bad scene id",
			files: map[string]string{"a.hcl": `scene { id = "nope" }`},
			want:  "invalid scene document",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, tc.files)
			h := testutil.NewHarness(t)
			_, err := hclscene.LoadDir(h.Ctx, dir)
			require.ErrorContains(t, err, tc.want)
		})
	}

	h := testutil.NewHarness(t)
	_, err := hclscene.LoadDir(h.Ctx, t.TempDir())
	require.ErrorContains(t, err, "no .hcl files found")
}
