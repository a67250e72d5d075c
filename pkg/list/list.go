// Package list implements the ordered membership container behind flow-field
// rosters: a doubly linked list whose nodes are cached by object identity.
// Simulation loops add, drop and reorder the same bounded set of entities every
// tick; caching one node per identity means a re-added entity reuses the cell
// it had before instead of allocating a new one.
//
// The container is deliberately not thread-safe. Every List instance expects a
// single owner (in this repo, a registry shard holding a lock); see pkg/registry.

package list

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/jessonx/flow-field/pkg/utils"
)

// ErrNotMember is returned by MoveUp and MoveDown when the object is not
// currently linked into the list.
var ErrNotMember = errors.New("object is not a list member")

// List is a doubly linked list over payloads of type T, keyed by the identity
// K extracted from each payload. At most one node per identity exists for the
// lifetime of the List: removing a member parks its node in the identity cache,
// and re-adding the same identity reuses that node.
type List[K comparable, T any] struct {
	identity func(T) K // Extracts the stable identity from a payload.
	// nodes caches one node per identity ever added; entries outlive removal so
	// a re-added identity reuses its old cell. Dropped only by Destroy.
	nodes map[K]*Node[K, T]
	head  *Node[K, T]
	tail  *Node[K, T]
	// length counts in-use nodes and always equals the reachable chain length.
	length int
	id     string // Instance identifier minted at construction.
	logger *slog.Logger
	// destroyed flips once in Destroy; every later operation is refused.
	destroyed bool
}

// New constructs an empty list around the given identity extractor. The
// extractor must return a stable, unique key for every payload it will ever
// see; a nil extractor panics. A nil logger falls back to slog.Default().
func New[K comparable, T any](identity func(T) K, logger *slog.Logger) *List[K, T] {
	if identity == nil {
		panic("list: identity extractor must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &List[K, T]{
		identity: identity,
		nodes:    make(map[K]*Node[K, T]),
		id:       fmt.Sprintf("%d-%04x", time.Now().UnixNano(), rand.Intn(1<<16)),
		logger:   logger,
	}
}

// Len returns the number of live members.
func (l *List[K, T]) Len() int {
	return l.length
}

// First returns the head node, or nil when the list is empty. Chains are
// walked with Node.Next / Node.Prev.
func (l *List[K, T]) First() *Node[K, T] {
	return l.head
}

// ID returns the instance identifier minted at construction.
func (l *List[K, T]) ID() string {
	return l.id
}

// usable guards every operation against a destroyed list.
func (l *List[K, T]) usable(op string) bool {
	if l.destroyed {
		utils.RaiseInvariant("list", "use_after_destroy",
			"Operation invoked on a destroyed list.", "op", op, "listId", l.id)
		return false
	}
	return true
}

// Add appends the object at the tail and reports whether a node was linked in.
// A previously removed identity reuses its cached node; an identity that is
// already a live member leaves the list untouched and returns false.
func (l *List[K, T]) Add(v T) bool {
	if !l.usable("add") {
		return false
	}
	if l.head != nil && l.tail == nil {
		// A non-empty list must always record its tail.
		utils.RaiseInvariant("list", "missing_tail",
			"Non-empty list has no tail recorded.", "listId", l.id, "length", l.length)
		return false
	}

	key := l.identity(v)
	node, cached := l.nodes[key]
	if cached && node.inUse {
		return false // Single membership per identity.
	}
	if !cached {
		node = &Node[K, T]{key: key}
		l.nodes[key] = node
	}
	// Arm the node. Recycled nodes keep their key; links start detached.
	node.payload = v
	node.next, node.prev = nil, nil
	node.inUse = true

	if l.tail == nil { // First member.
		l.head = node
		l.tail = node
	} else {
		l.tail.next = node
		node.prev = l.tail
		l.tail = node
	}
	l.length++
	return true
}

// Has reports whether the object is currently a member. A recycled node kept
// in the identity cache does not count; only in-use nodes do.
func (l *List[K, T]) Has(v T) bool {
	if !l.usable("has") {
		return false
	}
	node, cached := l.nodes[l.identity(v)]
	return cached && node.inUse
}

// All returns an iterator over the members front to back, yielding each
// identity key and its payload. Mutating the list during iteration is not
// supported.
func (l *List[K, T]) All() iter.Seq2[K, T] {
	return func(yield func(K, T) bool) {
		for n := l.head; n != nil; n = n.next {
			if !yield(n.key, n.payload) {
				return
			}
		}
	}
}

// Get returns the payload of the live member carrying the given identity key,
// or the zero value and false when no such member exists.
func (l *List[K, T]) Get(key K) (T, bool) {
	var zero T
	if !l.usable("get") {
		return zero, false
	}
	node, cached := l.nodes[key]
	if !cached || !node.inUse {
		return zero, false
	}
	return node.payload, true
}

// Remove splices the object's node out of the chain and parks it for reuse.
// Removing an absent or already-removed object returns false with no change.
func (l *List[K, T]) Remove(v T) bool {
	if !l.usable("remove") {
		return false
	}
	node, cached := l.nodes[l.identity(v)]
	if !cached || !node.inUse {
		return false
	}
	l.unlink(node)
	return true
}

// unlink splices a live node out of the chain, marks it free and releases the
// payload reference. The identity cache entry stays behind for reuse.
func (l *List[K, T]) unlink(n *Node[K, T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else { // Node is the head.
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else { // Node is the tail.
		l.tail = n.prev
	}
	n.next, n.prev = nil, nil
	n.inUse = false
	var zero T
	n.payload = zero
	l.length--
}

// MoveUp swaps the object with its predecessor, moving it one position toward
// the head. Moving the head is a no-op; moving a non-member is ErrNotMember.
// Only the four surrounding links change; no payload moves between nodes.
func (l *List[K, T]) MoveUp(v T) error {
	if !l.usable("move_up") {
		return ErrNotMember
	}
	node, cached := l.nodes[l.identity(v)]
	if !cached || !node.inUse {
		return ErrNotMember
	}
	l.raise(node)
	return nil
}

// MoveDown swaps the object with its successor, moving it one position toward
// the tail; the swap is raise applied to the successor. Moving the tail is a
// no-op; moving a non-member is ErrNotMember.
func (l *List[K, T]) MoveDown(v T) error {
	if !l.usable("move_down") {
		return ErrNotMember
	}
	node, cached := l.nodes[l.identity(v)]
	if !cached || !node.inUse {
		return ErrNotMember
	}
	if node.next != nil {
		l.raise(node.next)
	}
	return nil
}

// raise swaps n with its predecessor in constant time, fixing head and tail
// when the swap touches a boundary.
func (l *List[K, T]) raise(n *Node[K, T]) {
	pred := n.prev
	if pred == nil {
		return // Already first.
	}
	before := pred.prev // Nil when pred is the head.
	after := n.next     // Nil when n is the tail.

	// Rewire before <-> n <-> pred <-> after.
	n.prev = before
	if before != nil {
		before.next = n
	} else {
		l.head = n
	}
	n.next = pred
	pred.prev = n
	pred.next = after
	if after != nil {
		after.prev = pred
	} else {
		l.tail = pred
	}
}

// Sort rebuilds the list in the order imposed by `compare`: payloads are
// collected in list order, every node is detached, the payloads are sorted
// (not stably) and re-added one by one. The identity cache survives, so each
// payload lands back in the node it occupied before.
func (l *List[K, T]) Sort(compare utils.CompareFn[T]) {
	if !l.usable("sort") {
		return
	}
	if compare == nil {
		utils.RaiseInvariant("list", "nil_comparator",
			"Sort invoked without a comparator.", "listId", l.id)
		return
	}

	payloads := make([]T, 0, l.length)
	for n := l.head; n != nil; n = n.next {
		payloads = append(payloads, n.payload)
	}
	l.detachAll()
	slices.SortFunc(payloads, compare)
	for _, payload := range payloads {
		l.Add(payload)
	}
}

// detachAll frees every linked node and resets the boundaries. Cached nodes
// stay mapped so identities keep their cells.
func (l *List[K, T]) detachAll() {
	var zero T
	for n := l.head; n != nil; {
		next := n.next
		n.next, n.prev = nil, nil
		n.inUse = false
		n.payload = zero
		n = next
	}
	l.head = nil
	l.tail = nil
	l.length = 0
}

// Shift unlinks the head and returns its payload, or the zero value and false
// when the list is empty.
func (l *List[K, T]) Shift() (T, bool) {
	var zero T
	if !l.usable("shift") || l.head == nil {
		return zero, false
	}
	payload := l.head.payload
	l.unlink(l.head)
	return payload, true
}

// Pop unlinks the tail and returns its payload, or the zero value and false
// when the list is empty.
func (l *List[K, T]) Pop() (T, bool) {
	var zero T
	if !l.usable("pop") || l.tail == nil {
		return zero, false
	}
	payload := l.tail.payload
	l.unlink(l.tail)
	return payload, true
}

// Clear frees every member in one pass. Head, tail and length all reset; the
// identity cache keeps every node for reuse.
func (l *List[K, T]) Clear() {
	if !l.usable("clear") {
		return
	}
	l.detachAll()
}

// Destroy releases every payload reference, free and linked nodes alike, and
// drops the identity cache. The list is unusable afterwards; further
// operations raise an invariant violation and change nothing.
func (l *List[K, T]) Destroy() {
	if !l.usable("destroy") {
		return
	}
	var zero T
	for _, n := range l.nodes {
		n.next, n.prev = nil, nil
		n.inUse = false
		n.payload = zero
	}
	l.nodes = nil
	l.head = nil
	l.tail = nil
	l.length = 0
	l.destroyed = true
}

// Dump renders the chain layout to the diagnostic logger at Debug level: the
// instance id, the live length, the cache size and the identity chain. Purely
// observational; it never mutates the list.
func (l *List[K, T]) Dump() {
	if l.destroyed {
		l.logger.Debug("List is destroyed.", "listId", l.id)
		return
	}
	var chain strings.Builder
	reachable := 0
	for n := l.head; n != nil; n = n.next {
		if reachable > 0 {
			chain.WriteString(" <-> ")
		}
		fmt.Fprintf(&chain, "%v", n.key)
		reachable++
	}
	l.logger.Debug("List structure.", "listId", l.id, "length", l.length,
		"reachable", reachable, "cached", len(l.nodes), "chain", chain.String())
}
