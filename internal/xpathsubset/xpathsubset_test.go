package xpathsubset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	ns, local string
	text      string
	attrs     map[string]string
	children  []*fakeNode
}

func (n *fakeNode) Namespace() string { return n.ns }
func (n *fakeNode) Local() string     { return n.local }
func (n *fakeNode) Text() string      { return n.text }
func (n *fakeNode) Attribute(ns, local string) (string, bool) {
	v, ok := n.attrs[local]
	return v, ok
}
func (n *fakeNode) ChildElements() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func tree() *fakeNode {
	return &fakeNode{
		local: "order",
		children: []*fakeNode{
			{local: "item", attrs: map[string]string{"sku": "A1"}, children: []*fakeNode{
				{local: "qty", text: "3"},
			}},
			{local: "item", attrs: map[string]string{"sku": "B2"}, children: []*fakeNode{
				{local: "qty", text: "1"},
			}},
		},
	}
}

func TestSelectChildPath(t *testing.T) {
	t.Parallel()

	paths, err := Compile("item", nil)
	require.NoError(t, err)
	nodes := SelectNodes(paths[0], tree())
	assert.Len(t, nodes, 2)
}

func TestFieldAttribute(t *testing.T) {
	t.Parallel()

	paths, err := Compile("@sku", nil)
	require.NoError(t, err)
	items := SelectNodes(&Path{Steps: []Step{{Local: "item"}}}, tree())
	v, ok := FieldValue(paths[0], items[0])
	require.True(t, ok)
	assert.Equal(t, "A1", v)
}

func TestFieldChildText(t *testing.T) {
	t.Parallel()

	paths, err := Compile("qty", nil)
	require.NoError(t, err)
	items := SelectNodes(&Path{Steps: []Step{{Local: "item"}}}, tree())
	v, ok := FieldValue(paths[0], items[1])
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestDescendantSelector(t *testing.T) {
	t.Parallel()

	paths, err := Compile(".//item", nil)
	require.NoError(t, err)
	nodes := SelectNodes(paths[0], tree())
	assert.Len(t, nodes, 2)
}

func TestUnionSelector(t *testing.T) {
	t.Parallel()

	paths, err := Compile("item | missing", nil)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}
