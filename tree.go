package vbf

import (
	"iter"
	"strings"
)

// Node is one level of the hierarchy implied by '/' in entry names.
type Node struct {
	// Name is the path component, or "" for the root.
	Name string

	// Path is the full '/'-joined path from the root.
	Path string

	// File reports whether Path is a stored entry name. A node can be both a
	// file and have children if the archive stores both "a" and "a/b".
	File bool

	// Children are in first-seen archive order.
	Children []*Node

	byName map[string]*Node
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.byName[name]
	return c, ok
}

// Walk returns an iterator over n and its descendants, depth first.
func (n *Node) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

func (n *Node) child(name string) *Node {
	if c, ok := n.byName[name]; ok {
		return c
	}
	p := name
	if n.Path != "" {
		p = n.Path + "/" + name
	}
	c := &Node{Name: name, Path: p}
	if n.byName == nil {
		n.byName = make(map[string]*Node)
	}
	n.byName[name] = c
	n.Children = append(n.Children, c)
	return c
}

// Tree builds the hierarchy of entry names that match pattern (see Match).
// The archive has no directory records; the hierarchy is inferred purely
// from '/' separators.
func (a *Archive) Tree(pattern string) *Node {
	return BuildTree(a.idx.Names(), pattern)
}

// BuildTree builds the hierarchy of the names that match pattern.
func BuildTree(names []string, pattern string) *Node {
	f := NewFilter(pattern)
	root := &Node{}
	for _, name := range names {
		if !f.Match(name) {
			continue
		}
		n := root
		rest := name
		for {
			i := strings.IndexByte(rest, '/')
			if i < 0 {
				n = n.child(rest)
				break
			}
			n = n.child(rest[:i])
			// A trailing separator does not add an empty component.
			if rest = rest[i+1:]; rest == "" {
				break
			}
		}
		n.File = true
	}
	return root
}
