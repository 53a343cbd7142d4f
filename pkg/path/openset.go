package path

import "container/heap"

// openSet is a min-priority queue of PathNodes ordered by distance, FIFO
// among equal distances. It holds at most one entry per graph node.
type openSet struct {
	items   pathHeap
	members map[string]struct{}
	seq     int
}

func newOpenSet() *openSet {
	return &openSet{members: make(map[string]struct{})}
}

// Push enqueues n unless a PathNode for the same graph node is already
// open. It reports whether n was added.
func (s *openSet) Push(n *PathNode) bool {
	if _, ok := s.members[n.Node]; ok {
		return false
	}
	s.members[n.Node] = struct{}{}
	heap.Push(&s.items, queued{node: n, seq: s.seq})
	s.seq++
	return true
}

// Pop removes and returns the PathNode with the smallest distance.
func (s *openSet) Pop() *PathNode {
	q := heap.Pop(&s.items).(queued)
	delete(s.members, q.node.Node)
	return q.node
}

func (s *openSet) Contains(node string) bool {
	_, ok := s.members[node]
	return ok
}

func (s *openSet) Len() int {
	return s.items.Len()
}

type queued struct {
	node *PathNode
	seq  int
}

type pathHeap []queued

func (h pathHeap) Len() int { return len(h) }

func (h pathHeap) Less(i, j int) bool {
	if h[i].node.Distance != h[j].node.Distance {
		return h[i].node.Distance < h[j].node.Distance
	}
	return h[i].seq < h[j].seq
}

func (h pathHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *pathHeap) Push(x any) { *h = append(*h, x.(queued)) }

func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
