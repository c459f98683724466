// Package list implements a doubly-linked list with O(1) push and pop at
// both ends and O(1) removal of a node the caller holds.
//
// The list owns its nodes: a *Node is only meaningful while it is linked
// into the list that created it. There is no indexed access.
package list

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/rawbytedev/songbird/internal/common"
)

var (
	// ErrEmpty is returned by reads and pops on an empty container.
	ErrEmpty = common.ErrEmpty
	// ErrForeignNode is returned by Remove for a nil node, a node of another
	// list, or a node that was already unlinked.
	ErrForeignNode = errors.New("node does not belong to this list")
)

// Node is one element of a List.
type Node[T any] struct {
	value T
	prev  *Node[T]
	next  *Node[T]
	list  *List[T]
}

// Value returns the value held by the node.
func (n *Node[T]) Value() T { return n.value }

// Next returns the following node, or nil at the foot.
func (n *Node[T]) Next() *Node[T] { return n.next }

// Prev returns the preceding node, or nil at the head.
func (n *Node[T]) Prev() *Node[T] { return n.prev }

// List is a doubly-linked list. The zero value is an empty list.
// head == nil iff foot == nil iff Len() == 0.
type List[T any] struct {
	head *Node[T]
	foot *Node[T]
	size int
}

// New returns an empty list.
func New[T any]() *List[T] { return &List[T]{} }

// Len returns the number of nodes.
func (l *List[T]) Len() int { return l.size }

// IsEmpty reports whether the list has no nodes.
func (l *List[T]) IsEmpty() bool { return l.size == 0 }

// Head returns the first node, or nil.
func (l *List[T]) Head() *Node[T] { return l.head }

// Foot returns the last node, or nil.
func (l *List[T]) Foot() *Node[T] { return l.foot }

// PushHead links value in as the new head and returns its node.
func (l *List[T]) PushHead(value T) *Node[T] {
	n := &Node[T]{value: value, next: l.head, list: l}
	if l.head == nil {
		l.foot = n
	} else {
		l.head.prev = n
	}
	l.head = n
	l.size++
	return n
}

// PushFoot links value in as the new foot and returns its node.
func (l *List[T]) PushFoot(value T) *Node[T] {
	n := &Node[T]{value: value, prev: l.foot, list: l}
	if l.foot == nil {
		l.head = n
	} else {
		l.foot.next = n
	}
	l.foot = n
	l.size++
	return n
}

// PeekHead returns the head value.
func (l *List[T]) PeekHead() (T, error) {
	if l.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.head.value, nil
}

// PeekFoot returns the foot value.
func (l *List[T]) PeekFoot() (T, error) {
	if l.foot == nil {
		var zero T
		return zero, ErrEmpty
	}
	return l.foot.value, nil
}

// PopHead unlinks the head and returns its value.
func (l *List[T]) PopHead() (T, error) {
	if l.head == nil {
		var zero T
		return zero, ErrEmpty
	}
	n := l.head
	l.unlink(n)
	return n.value, nil
}

// PopFoot unlinks the foot and returns its value.
func (l *List[T]) PopFoot() (T, error) {
	if l.foot == nil {
		var zero T
		return zero, ErrEmpty
	}
	n := l.foot
	l.unlink(n)
	return n.value, nil
}

// Remove unlinks node and returns the node that now stands in its place:
// the one that followed it, or the new foot when node was the foot. In the
// foot case the returned node has already been passed by a head-to-foot
// walk.
func (l *List[T]) Remove(node *Node[T]) (*Node[T], error) {
	if node == nil || node.list != l {
		return nil, ErrForeignNode
	}
	if node == l.foot {
		l.unlink(node)
		return l.foot, nil
	}
	next := node.next
	l.unlink(node)
	return next, nil
}

// Clear drains the list by popping the foot until it is empty.
func (l *List[T]) Clear() {
	for l.size > 0 {
		_, _ = l.PopFoot()
	}
}

// Release is Clear; the list owns nothing beyond its nodes.
func (l *List[T]) Release() { l.Clear() }

// All yields values from head to foot.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := l.head; n != nil; n = n.next {
			if !yield(n.value) {
				return
			}
		}
	}
}

// Backward yields values from foot to head.
func (l *List[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for n := l.foot; n != nil; n = n.prev {
			if !yield(n.value) {
				return
			}
		}
	}
}

func (l *List[T]) unlink(n *Node[T]) {
	if n.prev == nil {
		l.head = n.next
	} else {
		n.prev.next = n.next
	}
	if n.next == nil {
		l.foot = n.prev
	} else {
		n.next.prev = n.prev
	}
	n.prev, n.next, n.list = nil, nil, nil
	l.size--
}
