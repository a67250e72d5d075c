package list

// Node is one cell of the doubly linked chain: a payload object, the identity
// it is bound to, the neighbor links and the free flag used for recycling.
// Callers walk nodes read-only; all relinking goes through the List.
type Node[K comparable, T any] struct {
	key     K
	payload T
	next    *Node[K, T]
	prev    *Node[K, T]
	inUse   bool
}

// Next returns the next node in the chain, or nil at the tail.
func (n *Node[K, T]) Next() *Node[K, T] {
	return n.next
}

// Prev returns the previous node in the chain, or nil at the head.
func (n *Node[K, T]) Prev() *Node[K, T] {
	return n.prev
}

// Key returns the identity this node was allocated for. It never changes,
// even while the node sits free in the cache.
func (n *Node[K, T]) Key() K {
	return n.key
}

// Payload returns the stored object, or the zero value for a free node.
func (n *Node[K, T]) Payload() T {
	return n.payload
}
