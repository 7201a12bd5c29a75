package schedule

import (
	"sort"
	"strings"
)

// sectionPrefix returns the syllabus section a topic ID belongs to:
// everything up to the last dot ("9708.1.2" -> "9708.1"). IDs without a
// dot are their own section.
func sectionPrefix(id string) string {
	if i := strings.LastIndex(id, "."); i > 0 {
		return id[:i]
	}
	return id
}

// BuildClusters groups related topics — same section prefix or explicitly
// tagged as related — into clusters of at most maxSize members. Larger
// groups are split; singleton clusters are allowed. Output order and
// membership are deterministic for a given input set.
func BuildClusters(topics []Topic, maxSize int) [][]string {
	if maxSize < 1 {
		maxSize = 1
	}

	ids := make([]string, 0, len(topics))
	known := make(map[string]bool, len(topics))
	for _, t := range topics {
		if !known[t.ID] {
			known[t.ID] = true
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)

	parent := make(map[string]string, len(ids))
	for _, id := range ids {
		parent[id] = id
	}
	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Smaller root wins, keeping merges order-independent.
		if rb < ra {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	// Same syllabus section.
	bySection := make(map[string][]string)
	for _, id := range ids {
		sec := sectionPrefix(id)
		bySection[sec] = append(bySection[sec], id)
	}
	for _, members := range bySection {
		for i := 1; i < len(members); i++ {
			union(members[0], members[i])
		}
	}

	// Explicit relations.
	for _, t := range topics {
		for _, rel := range t.Related {
			if known[rel] {
				union(t.ID, rel)
			}
		}
	}

	groups := make(map[string][]string)
	for _, id := range ids {
		root := find(id)
		groups[root] = append(groups[root], id)
	}

	roots := make([]string, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Strings(roots)

	var clusters [][]string
	for _, root := range roots {
		members := groups[root]
		sort.Strings(members)
		for start := 0; start < len(members); start += maxSize {
			end := start + maxSize
			if end > len(members) {
				end = len(members)
			}
			clusters = append(clusters, members[start:end])
		}
	}
	return clusters
}

// InterleaveCluster builds the within-session practice sequence for a
// cluster: each topic appears once per round, and with two or more
// distinct topics no topic ever occupies two consecutive slots. A
// singleton cluster necessarily repeats — the one permitted exception.
func InterleaveCluster(cluster []string, rounds int) []string {
	if len(cluster) == 0 || rounds < 1 {
		return nil
	}
	seq := make([]string, 0, len(cluster)*rounds)
	for r := 0; r < rounds; r++ {
		// Rotate each round so session openings vary across rounds;
		// round boundaries still never repeat a topic when the cluster
		// has at least two members.
		offset := r % len(cluster)
		if len(cluster) == 2 {
			offset = 0
		}
		for i := 0; i < len(cluster); i++ {
			seq = append(seq, cluster[(offset+i)%len(cluster)])
		}
	}
	return seq
}
