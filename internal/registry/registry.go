package registry

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Tag carried by YAML and JSON string scalars.
const strTag = "!!str"

// Immutable mapping from [Key] to [Command].
type Registry struct {
	commands  map[Key]Command
	maxKeyLen int
}

// Builds a registry from already validated entries.
//
// Returns [ErrEmptyRegistry] if commands is empty. The map is copied.
func New(commands map[Key]Command) (*Registry, error) {
	if len(commands) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{commands: make(map[Key]Command, len(commands))}
	for k, c := range commands {
		r.commands[k] = c
		r.maxKeyLen = max(r.maxKeyLen, len(k))
	}
	return r, nil
}

// Reads and parses the configuration file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}
	return Parse(data)
}

// Decodes a configuration document and validates every entry.
//
// The document must be a single mapping whose keys and values are all string
// scalars. Keys are validated with [ParseKey] and values with [NewCommand].
// The first failure aborts the parse; no partial registry is returned.
func Parse(data []byte) (*Registry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigFormatError{Err: err}
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, &ConfigFormatError{Line: root.Line, Column: root.Column, Err: errors.New("top level is not a mapping")}
	}

	commands := make(map[Key]Command, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		kn, vn := root.Content[i], root.Content[i+1]
		if err := expectString(kn, "key"); err != nil {
			return nil, err
		}
		if err := expectString(vn, "value"); err != nil {
			return nil, err
		}

		key, err := ParseKey(kn.Value)
		if err != nil {
			return nil, err
		}
		if _, dup := commands[key]; dup {
			return nil, &ConfigFormatError{Line: kn.Line, Column: kn.Column, Err: fmt.Errorf("duplicate key %q", kn.Value)}
		}

		cmd, err := NewCommand(vn.Value)
		if err != nil {
			return nil, &CommandParseError{Key: kn.Value, Value: vn.Value, Err: err}
		}
		commands[key] = cmd
	}

	return New(commands)
}

// Fails unless n is a plain string scalar.
func expectString(n *yaml.Node, what string) error {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == strTag {
		return nil
	}
	return &ConfigFormatError{
		Line:   n.Line,
		Column: n.Column,
		Err:    fmt.Errorf("%s is %s, not a string", what, describe(n)),
	}
}

// Names the kind of a node for error messages.
func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.AliasNode:
		return "an alias"
	case yaml.ScalarNode:
		return n.ShortTag()
	default:
		return "empty"
	}
}

// Returns the command configured for key.
//
// Any string may be looked up; strings that are not valid keys never match.
func (r *Registry) Lookup(key string) (Command, bool) {
	c, ok := r.commands[Key(key)]
	return c, ok
}

// Returns the number of configured keys.
func (r *Registry) Len() int {
	return len(r.commands)
}

// Returns the byte length of the longest key.
func (r *Registry) MaxKeyLen() int {
	return r.maxKeyLen
}

// Returns all keys in sorted order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.commands))
	for k := range r.commands {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
