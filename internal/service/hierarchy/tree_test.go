package hierarchy

import (
	"sort"
	"testing"

	"rulebase/internal/domain/models"
)

func strptr(s string) *string { return &s }

// buildFolders creates a scope from (id, parent) pairs; "" parent = root.
func buildFolders(pairs [][2]string) []models.Folder {
	out := make([]models.Folder, 0, len(pairs))
	for _, p := range pairs {
		f := models.Folder{ID: p[0], Name: p[0], SyncStatus: models.SyncLocal}
		if p[1] != "" {
			f.ParentFolderID = strptr(p[1])
		}
		out = append(out, f)
	}
	return out
}

func TestDescendants(t *testing.T) {
	//      a        x
	//     / \
	//    b   c
	//   /
	//  d
	tree := NewTree(buildFolders([][2]string{
		{"a", ""}, {"b", "a"}, {"c", "a"}, {"d", "b"}, {"x", ""},
	}))

	tests := []struct {
		name string
		id   string
		want []string
	}{
		{"full subtree", "a", []string{"b", "c", "d"}},
		{"mid subtree", "b", []string{"d"}},
		{"leaf", "d", nil},
		{"sibling root untouched", "x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.Descendants(tt.id)
			sort.Strings(got)
			if len(got) != len(tt.want) {
				t.Fatalf("Descendants(%q) = %v, want %v", tt.id, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Descendants(%q) = %v, want %v", tt.id, got, tt.want)
				}
			}
		})
	}
}

func TestClosureIncludesSelf(t *testing.T) {
	tree := NewTree(buildFolders([][2]string{{"a", ""}, {"b", "a"}}))
	got := tree.Closure("a")
	if len(got) != 2 || got[0] != "a" {
		t.Fatalf("Closure(a) = %v, want [a b]", got)
	}
}

func TestWouldCycle(t *testing.T) {
	tree := NewTree(buildFolders([][2]string{
		{"a", ""}, {"b", "a"}, {"c", "b"}, {"x", ""},
	}))

	tests := []struct {
		name      string
		id        string
		newParent *string
		want      bool
	}{
		{"move under own child", "a", strptr("b"), true},
		{"move under own grandchild", "a", strptr("c"), true},
		{"move under itself", "a", strptr("a"), true},
		{"move to unrelated root", "a", strptr("x"), false},
		{"move to root is always legal", "a", nil, false},
		{"move leaf under root", "c", strptr("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tree.WouldCycle(tt.id, tt.newParent); got != tt.want {
				t.Errorf("WouldCycle(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestWouldCycleOnCorruptedChain(t *testing.T) {
	// a and b point at each other; traversal must terminate
	folders := []models.Folder{
		{ID: "a", Name: "a", ParentFolderID: strptr("b")},
		{ID: "b", Name: "b", ParentFolderID: strptr("a")},
	}
	tree := NewTree(folders)
	// both walks must return without hanging
	_ = tree.Descendants("a")
	if _, ok := tree.PathTo("a"); ok {
		t.Error("PathTo on a cyclic chain should report failure")
	}
}

func TestPathTo(t *testing.T) {
	tree := NewTree(buildFolders([][2]string{
		{"standards", ""}, {"go", "standards"}, {"style", "go"},
	}))

	tests := []struct {
		id   string
		want string
	}{
		{"standards", "standards"},
		{"go", "standards/go"},
		{"style", "standards/go/style"},
	}

	for _, tt := range tests {
		got, ok := tree.PathTo(tt.id)
		if !ok || got != tt.want {
			t.Errorf("PathTo(%q) = %q, %v; want %q, true", tt.id, got, ok, tt.want)
		}
	}
}

func TestChildrenOrdering(t *testing.T) {
	folders := []models.Folder{
		{ID: "a", Name: "zeta", DisplayOrder: 0},
		{ID: "b", Name: "alpha", DisplayOrder: 1},
		{ID: "c", Name: "beta", DisplayOrder: 0},
	}
	tree := NewTree(folders)
	roots := tree.Roots()
	want := []string{"c", "a", "b"} // order 0 sorted by name, then order 1
	if len(roots) != 3 {
		t.Fatalf("Roots() returned %d folders, want 3", len(roots))
	}
	for i, f := range roots {
		if f.ID != want[i] {
			t.Errorf("Roots()[%d] = %s, want %s", i, f.ID, want[i])
		}
	}
}
