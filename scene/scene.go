// Package scene is an in-memory scene graph that drives replication.
//
// Objects form a tree of uniquely named nodes below a root. Nodes carry
// properties, spawners and synchronizers, and report their lifecycle to the
// replication Hooks: synchronizers start replication when they enter the tree,
// spawners announce locally spawned nodes once they are ready.
//
// A Tree is not safe for concurrent use.
package scene

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spacemeshos/go-replica/codec"
	"github.com/spacemeshos/go-replica/common/types"
	"github.com/spacemeshos/go-replica/log"
	"github.com/spacemeshos/go-replica/replication"
)

const RootName = "root"

var (
	ErrNotFound     = errors.New("not found")
	ErrNameConflict = errors.New("name conflict")
	ErrHasParent    = errors.New("node already has a parent")
	ErrCycle        = errors.New("node cannot be its own ancestor")
)

type node struct {
	id        types.ObjectID
	name      string
	parent    *node
	children  []*node
	props     map[string]codec.Value
	inTree    bool
	queued    bool
	destroyed []func()

	spawner *Spawner
	sync    *Synchronizer
}

type Opt func(*Tree)

func WithLogger(logger *zap.Logger) Opt {
	return func(t *Tree) {
		t.logger = logger
	}
}

// Tree owns every node of a scene.
type Tree struct {
	logger *zap.Logger
	hooks  Hooks

	last    types.ObjectID
	nodes   map[types.ObjectID]*node
	root    *node
	queue   []types.ObjectID
	parents map[types.ObjectID][]*Spawner
}

// New creates a tree holding only the root node.
func New(opts ...Opt) *Tree {
	t := &Tree{
		logger:  zap.NewNop(),
		nodes:   map[types.ObjectID]*node{},
		parents: map[types.ObjectID][]*Spawner{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.root = t.newNode(RootName)
	t.root.inTree = true
	return t
}

// SetHooks connects the tree to the replicator.
func (t *Tree) SetHooks(hooks Hooks) {
	t.hooks = hooks
}

// ValidateName returns name with characters that are invalid in node names replaced.
func ValidateName(name string) string {
	return replication.SanitizeName(name)
}

func (t *Tree) newNode(name string) *node {
	t.last++
	n := &node{
		id:    t.last,
		name:  ValidateName(name),
		props: map[string]codec.Value{},
	}
	t.nodes[n.id] = n
	return n
}

// NewNode creates a node outside of the tree.
func (t *Tree) NewNode(name string) types.ObjectID {
	return t.newNode(name).id
}

func (t *Tree) Root() types.ObjectID {
	return t.root.id
}

func (t *Tree) Exists(obj types.ObjectID) bool {
	_, ok := t.nodes[obj]
	return ok
}

func (t *Tree) get(obj types.ObjectID) (*node, error) {
	n, ok := t.nodes[obj]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, obj)
	}
	return n, nil
}

func (t *Tree) Name(obj types.ObjectID) string {
	if n, ok := t.nodes[obj]; ok {
		return n.name
	}
	return ""
}

// SetName renames the node. Invalid characters are replaced.
func (t *Tree) SetName(obj types.ObjectID, name string) {
	if n, ok := t.nodes[obj]; ok {
		n.name = ValidateName(name)
	}
}

// InTree returns true if the node is attached below the root.
func (t *Tree) InTree(obj types.ObjectID) bool {
	n, ok := t.nodes[obj]
	return ok && n.inTree
}

func (t *Tree) Parent(obj types.ObjectID) (types.ObjectID, bool) {
	n, ok := t.nodes[obj]
	if !ok || n.parent == nil {
		return 0, false
	}
	return n.parent.id, true
}

func (t *Tree) Children(obj types.ObjectID) []types.ObjectID {
	n, ok := t.nodes[obj]
	if !ok {
		return nil
	}
	ids := make([]types.ObjectID, 0, len(n.children))
	for _, child := range n.children {
		ids = append(ids, child.id)
	}
	return ids
}

func (n *node) child(name string) *node {
	for _, child := range n.children {
		if child.name == name {
			return child
		}
	}
	return nil
}

func (t *Tree) Child(parent types.ObjectID, name string) (types.ObjectID, bool) {
	n, ok := t.nodes[parent]
	if !ok {
		return 0, false
	}
	if child := n.child(name); child != nil {
		return child.id, true
	}
	return 0, false
}

func (t *Tree) HasChild(parent types.ObjectID, name string) bool {
	_, ok := t.Child(parent, name)
	return ok
}

// AddChild attaches child to parent. If parent is in the tree, the subtree
// enters it: synchronizers start replication top-down, then nodes become
// ready bottom-up and spawners announce the nodes they spawned.
// Errors of the replication hooks are returned after the child was attached.
func (t *Tree) AddChild(parent, child types.ObjectID) error {
	p, err := t.get(parent)
	if err != nil {
		return err
	}
	c, err := t.get(child)
	if err != nil {
		return err
	}
	if c.parent != nil || c == t.root {
		return fmt.Errorf("%w: %v", ErrHasParent, child)
	}
	for ancestor := p; ancestor != nil; ancestor = ancestor.parent {
		if ancestor == c {
			return fmt.Errorf("%w: %v", ErrCycle, child)
		}
	}
	if p.child(c.name) != nil {
		return fmt.Errorf("%w: %v already has a child named %q", ErrNameConflict, parent, c.name)
	}
	c.parent = p
	p.children = append(p.children, c)
	if !p.inTree {
		return nil
	}
	var errs []error
	t.enterTree(c, &errs)
	t.ready(c, &errs)
	return errors.Join(errs...)
}

func (t *Tree) enterTree(n *node, errs *[]error) {
	n.inTree = true
	if n.sync != nil {
		if err := n.sync.start(); err != nil {
			*errs = append(*errs, err)
		}
	}
	for _, child := range slices.Clone(n.children) {
		t.enterTree(child, errs)
	}
}

func (t *Tree) ready(n *node, errs *[]error) {
	for _, child := range slices.Clone(n.children) {
		t.ready(child, errs)
	}
	if n.parent == nil {
		return
	}
	for _, sp := range t.parents[n.parent.id] {
		if err := sp.nodeReady(n.id); err != nil {
			*errs = append(*errs, err)
		}
	}
}

func (t *Tree) exitTree(n *node) {
	for _, child := range slices.Clone(n.children) {
		t.exitTree(child)
	}
	if n.sync != nil {
		t.report("replication stop", n.sync.stop())
	}
	if n.parent != nil {
		for _, sp := range t.parents[n.parent.id] {
			t.report("despawn", sp.nodeExiting(n.id))
		}
	}
	n.inTree = false
}

func (t *Tree) report(event string, err error) {
	if err != nil {
		t.logger.Warn("replication hook failed", zap.String("event", event), zap.Error(err))
	}
}

// RemoveFromParent detaches the node. Nodes leaving the tree stop replication
// and are despawned by their spawner.
func (t *Tree) RemoveFromParent(obj types.ObjectID) {
	n, ok := t.nodes[obj]
	if !ok || n.parent == nil {
		return
	}
	if n.inTree {
		t.exitTree(n)
	}
	p := n.parent
	p.children = slices.DeleteFunc(p.children, func(c *node) bool { return c == n })
	n.parent = nil
}

// QueueFree schedules the node and its subtree for destruction on the next Flush.
func (t *Tree) QueueFree(obj types.ObjectID) {
	n, ok := t.nodes[obj]
	if !ok || n.queued || n == t.root {
		return
	}
	n.queued = true
	t.queue = append(t.queue, obj)
}

// Flush destroys the nodes queued for destruction.
func (t *Tree) Flush() {
	queue := t.queue
	t.queue = nil
	for _, obj := range queue {
		t.Free(obj)
	}
}

// Free immediately detaches and destroys the node and its subtree.
func (t *Tree) Free(obj types.ObjectID) {
	n, ok := t.nodes[obj]
	if !ok || n == t.root {
		return
	}
	t.RemoveFromParent(obj)
	t.destroy(n)
}

func (t *Tree) destroy(n *node) {
	for _, child := range n.children {
		t.destroy(child)
	}
	delete(t.nodes, n.id)
	if n.spawner != nil {
		parents := t.parents[n.spawner.parent]
		t.parents[n.spawner.parent] = slices.DeleteFunc(parents, func(sp *Spawner) bool { return sp == n.spawner })
	}
	t.logger.Debug("destroyed", log.Object(n.id), zap.String("name", n.name))
	for _, fn := range n.destroyed {
		fn()
	}
	n.destroyed = nil
}

// OnDestroyed registers fn to run once, when the node is destroyed.
func (t *Tree) OnDestroyed(obj types.ObjectID, fn func()) {
	if n, ok := t.nodes[obj]; ok {
		n.destroyed = append(n.destroyed, fn)
	}
}

// Path returns the absolute path of a node in the tree, such as /root/World/Player.
func (t *Tree) Path(obj types.ObjectID) (string, bool) {
	n, ok := t.nodes[obj]
	if !ok || !n.inTree {
		return "", false
	}
	var names []string
	for ; n != nil; n = n.parent {
		names = append(names, n.name)
	}
	slices.Reverse(names)
	return "/" + strings.Join(names, "/"), true
}

// Lookup resolves an absolute path.
func (t *Tree) Lookup(path string) (types.ObjectID, bool) {
	rest, ok := strings.CutPrefix(path, "/"+RootName)
	if !ok || (rest != "" && rest[0] != '/') {
		return 0, false
	}
	n, ok := t.resolve(t.root, strings.TrimPrefix(rest, "/"))
	if !ok {
		return 0, false
	}
	return n.id, true
}

// Resolve finds a node by a path relative to from. "." and ".." are supported.
func (t *Tree) Resolve(from types.ObjectID, path string) (types.ObjectID, bool) {
	n, ok := t.nodes[from]
	if !ok {
		return 0, false
	}
	if n, ok = t.resolve(n, path); !ok {
		return 0, false
	}
	return n.id, true
}

func (t *Tree) resolve(n *node, path string) (*node, bool) {
	if path == "" {
		return n, true
	}
	for _, name := range strings.Split(path, "/") {
		switch name {
		case "", ".":
		case "..":
			if n.parent == nil {
				return nil, false
			}
			n = n.parent
		default:
			if n = n.child(name); n == nil {
				return nil, false
			}
		}
	}
	return n, true
}

// Spawner returns the spawner attached to the node.
func (t *Tree) Spawner(obj types.ObjectID) (replication.Spawner, bool) {
	n, ok := t.nodes[obj]
	if !ok || n.spawner == nil {
		return nil, false
	}
	return n.spawner, true
}

// Synchronizer returns the synchronizer attached to the node.
func (t *Tree) Synchronizer(obj types.ObjectID) (*Synchronizer, bool) {
	n, ok := t.nodes[obj]
	if !ok || n.sync == nil {
		return nil, false
	}
	return n.sync, true
}
