package schedule

import (
	"reflect"
	"testing"
)

func TestBuildClustersBySection(t *testing.T) {
	topics := []Topic{
		{ID: "econ.2.1"},
		{ID: "econ.1.2"},
		{ID: "econ.1.1"},
		{ID: "macro.3"},
	}
	got := BuildClusters(topics, 3)
	want := [][]string{
		{"econ.1.1", "econ.1.2"},
		{"econ.2.1"},
		{"macro.3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clusters = %v, want %v", got, want)
	}
}

func TestBuildClustersExplicitRelations(t *testing.T) {
	topics := []Topic{
		{ID: "econ.1.1", Related: []string{"macro.3"}},
		{ID: "econ.1.2"},
		{ID: "macro.3"},
	}
	got := BuildClusters(topics, 3)
	want := [][]string{{"econ.1.1", "econ.1.2", "macro.3"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clusters = %v, want %v", got, want)
	}
}

func TestBuildClustersSplitsAtCap(t *testing.T) {
	topics := []Topic{
		{ID: "a.1"}, {ID: "a.2"}, {ID: "a.3"}, {ID: "a.4"}, {ID: "a.5"},
	}
	got := BuildClusters(topics, 3)
	want := [][]string{
		{"a.1", "a.2", "a.3"},
		{"a.4", "a.5"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clusters = %v, want %v", got, want)
	}
}

func TestBuildClustersDeterministic(t *testing.T) {
	forward := []Topic{{ID: "a.1"}, {ID: "a.2"}, {ID: "b.1", Related: []string{"a.1"}}}
	backward := []Topic{{ID: "b.1", Related: []string{"a.1"}}, {ID: "a.2"}, {ID: "a.1"}}

	if !reflect.DeepEqual(BuildClusters(forward, 3), BuildClusters(backward, 3)) {
		t.Error("cluster output depends on input order")
	}
}

func TestBuildClustersIgnoresUnknownRelations(t *testing.T) {
	topics := []Topic{{ID: "a.1", Related: []string{"ghost.9"}}}
	got := BuildClusters(topics, 3)
	want := [][]string{{"a.1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("clusters = %v, want %v", got, want)
	}
}

func TestInterleaveClusterNoImmediateRepeats(t *testing.T) {
	for _, cluster := range [][]string{
		{"a", "b"},
		{"a", "b", "c"},
		{"a", "b", "c", "d"},
	} {
		seq := InterleaveCluster(cluster, 3)
		if len(seq) != len(cluster)*3 {
			t.Fatalf("len(seq) = %d for cluster %v", len(seq), cluster)
		}
		for i := 1; i < len(seq); i++ {
			if seq[i] == seq[i-1] {
				t.Errorf("cluster %v: immediate repeat at %d: %v", cluster, i, seq)
			}
		}
		counts := map[string]int{}
		for _, id := range seq {
			counts[id]++
		}
		for _, id := range cluster {
			if counts[id] != 3 {
				t.Errorf("cluster %v: topic %s appears %d times, want 3", cluster, id, counts[id])
			}
		}
	}
}

func TestInterleaveClusterSingleton(t *testing.T) {
	got := InterleaveCluster([]string{"solo"}, 3)
	want := []string{"solo", "solo", "solo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("seq = %v, want %v", got, want)
	}
}

func TestSectionPrefix(t *testing.T) {
	cases := []struct{ id, want string }{
		{"9708.1.2", "9708.1"},
		{"econ.1", "econ"},
		{"flat", "flat"},
	}
	for _, c := range cases {
		if got := sectionPrefix(c.id); got != c.want {
			t.Errorf("sectionPrefix(%q) = %q, want %q", c.id, got, c.want)
		}
	}
}
