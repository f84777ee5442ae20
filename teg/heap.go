package teg

import "container/heap"

// idHeap is a min-heap of effect ids in lexicographic order, used to
// make topological ordering deterministic.
type idHeap struct {
	s []EffectID
}

func newIDHeap() *idHeap {
	return &idHeap{}
}

func (h *idHeap) Len() int            { return len(h.s) }
func (h *idHeap) Less(i, j int) bool  { return h.s[i].Less(h.s[j]) }
func (h *idHeap) Swap(i, j int)       { h.s[i], h.s[j] = h.s[j], h.s[i] }
func (h *idHeap) Push(x interface{})  { h.s = append(h.s, x.(EffectID)) }
func (h *idHeap) Pop() interface{} {
	x := h.s[len(h.s)-1]
	h.s = h.s[:len(h.s)-1]
	return x
}

func (h *idHeap) len() int { return len(h.s) }

func (h *idHeap) push(id EffectID) {
	heap.Push(h, id)
}

func (h *idHeap) pop() EffectID {
	return heap.Pop(h).(EffectID)
}
