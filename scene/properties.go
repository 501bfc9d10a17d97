package scene

import (
	"fmt"
	"strings"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
)

// ErrProperty is returned for property paths that do not resolve.
var ErrProperty = fmt.Errorf("%w: property", ErrNotFound)

// splitProperty splits "[sub/path:]property" into the node path and the property name.
func splitProperty(path string) (string, string) {
	if i := strings.LastIndexByte(path, ':'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

func (t *Tree) property(obj types.ObjectID, path string) (*node, string, error) {
	n, err := t.get(obj)
	if err != nil {
		return nil, "", err
	}
	nodePath, name := splitProperty(path)
	if name == "" {
		return nil, "", fmt.Errorf("%w: empty name in %q", ErrProperty, path)
	}
	target, ok := t.resolve(n, nodePath)
	if !ok {
		return nil, "", fmt.Errorf("%w: node %q of %v", ErrProperty, nodePath, obj)
	}
	return target, name, nil
}

// Get reads a property addressed relative to obj.
func (t *Tree) Get(obj types.ObjectID, path string) (codec.Value, error) {
	n, name, err := t.property(obj, path)
	if err != nil {
		return codec.Value{}, err
	}
	v, ok := n.props[name]
	if !ok {
		return codec.Value{}, fmt.Errorf("%w: %q of %v", ErrProperty, path, obj)
	}
	return v, nil
}

// Set writes a property addressed relative to obj, creating it if needed.
func (t *Tree) Set(obj types.ObjectID, path string, v codec.Value) error {
	n, name, err := t.property(obj, path)
	if err != nil {
		return err
	}
	n.props[name] = v
	return nil
}

// GetState reads properties in order.
func (t *Tree) GetState(obj types.ObjectID, paths []string) ([]codec.Value, error) {
	values := make([]codec.Value, 0, len(paths))
	for _, path := range paths {
		v, err := t.Get(obj, path)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// SetState writes values to properties in order. Nothing is written if a
// path does not resolve.
func (t *Tree) SetState(obj types.ObjectID, paths []string, values []codec.Value) error {
	if len(paths) != len(values) {
		return fmt.Errorf("%d values for %d properties", len(values), len(paths))
	}
	targets := make([]*node, len(paths))
	names := make([]string, len(paths))
	for i, path := range paths {
		n, name, err := t.property(obj, path)
		if err != nil {
			return err
		}
		targets[i], names[i] = n, name
	}
	for i, n := range targets {
		n.props[names[i]] = values[i]
	}
	return nil
}
