package domain

import (
	"fmt"
	"slices"
)

// ClusterAssignment maps track ids to cluster labels.
type ClusterAssignment map[int64]int

// Labels returns the distinct cluster labels in ascending order.
func (c ClusterAssignment) Labels() []int {
	set := make(map[int]struct{})
	for _, l := range c {
		set[l] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// ClusterName is the subset name of a cluster label.
func ClusterName(label int) string {
	return fmt.Sprintf("Cluster %d", label)
}
