package dataset

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tells a Node apart as a single value or a group of entries.
type Kind int

const (
	// Leaf holds a scalar Value.
	Leaf Kind = iota
	// Branch holds ordered Children. Children decoded from a YAML
	// sequence have empty keys.
	Branch
)

// Node is one element of the venue information tree.
type Node struct {
	Kind     Kind
	Value    string
	Children []Entry
}

// Entry is a keyed child of a Branch, kept in file order.
type Entry struct {
	Key  string
	Node *Node
}

// UnmarshalYAML builds the tree from the raw YAML node so mapping order survives.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.DocumentNode:
		if len(value.Content) == 0 {
			return nil
		}
		return n.UnmarshalYAML(value.Content[0])
	case yaml.AliasNode:
		return n.UnmarshalYAML(value.Alias)
	case yaml.ScalarNode:
		n.Kind = Leaf
		n.Value = value.Value
		return nil
	case yaml.MappingNode:
		n.Kind = Branch
		n.Children = make([]Entry, 0, len(value.Content)/2)
		for i := 0; i+1 < len(value.Content); i += 2 {
			child := &Node{}
			if err := child.UnmarshalYAML(value.Content[i+1]); err != nil {
				return fmt.Errorf("info key %q: %w", value.Content[i].Value, err)
			}
			n.Children = append(n.Children, Entry{Key: value.Content[i].Value, Node: child})
		}
		return nil
	case yaml.SequenceNode:
		n.Kind = Branch
		n.Children = make([]Entry, 0, len(value.Content))
		for i, item := range value.Content {
			child := &Node{}
			if err := child.UnmarshalYAML(item); err != nil {
				return fmt.Errorf("info item %d: %w", i, err)
			}
			n.Children = append(n.Children, Entry{Node: child})
		}
		return nil
	default:
		return fmt.Errorf("unsupported yaml node kind %d at line %d", value.Kind, value.Line)
	}
}

// Format renders the node as an indented outline.
func (n *Node) Format() string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	n.format(&b, 0)
	return strings.TrimRight(b.String(), "\n")
}

func (n *Node) format(b *strings.Builder, depth int) {
	if n.Kind == Leaf {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.Value)
		b.WriteByte('\n')
		return
	}
	for _, e := range n.Children {
		formatEntry(b, e, depth)
	}
}

func formatEntry(b *strings.Builder, e Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	label := e.Key
	if label == "" {
		label = "-"
	} else {
		label += ":"
	}

	if e.Node == nil {
		b.WriteString(indent + label + "\n")
		return
	}
	if e.Node.Kind == Leaf {
		b.WriteString(indent + label + " " + e.Node.Value + "\n")
		return
	}
	b.WriteString(indent + label + "\n")
	e.Node.format(b, depth+1)
}

// walk visits every keyed entry depth-first.
func (n *Node) walk(fn func(Entry)) {
	if n == nil || n.Kind == Leaf {
		return
	}
	for _, e := range n.Children {
		if e.Key != "" {
			fn(e)
		}
		e.Node.walk(fn)
	}
}
