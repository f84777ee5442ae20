package utils

import "sort"

type intSeq struct {
	s   []int
	cmp func(int, int) bool
}

func (l *intSeq) Len() int {
	return len(l.s)
}

func (l *intSeq) Swap(i, j int) {
	l.s[i], l.s[j] = l.s[j], l.s[i]
}

func (l *intSeq) Less(i, j int) bool {
	return l.cmp(l.s[i], l.s[j])
}

// SortIntSeq sorts s with an index-level comparator. Used wherever a
// deterministic permutation of parallel slices is needed.
func SortIntSeq(s []int, cmp func(int, int) bool) {
	l := &intSeq{
		s:   s,
		cmp: cmp,
	}
	sort.Sort(l)
}

// SortedStringKeys returns the keys of m in ascending order.
func SortedStringKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
