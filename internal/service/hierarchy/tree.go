package hierarchy

import (
	"sort"

	"rulebase/internal/domain/models"
)

// Tree is an in-memory index over one scope's flat folder list (one account
// tree or one project tree). All traversals are iterative with a visited
// set: the acyclicity invariant should make the guard unreachable, but a
// corrupted parent chain must terminate instead of spinning.
type Tree struct {
	nodes    map[string]*models.Folder
	children map[string][]string // parent id -> child ids; "" for roots
}

// rootKey indexes folders whose ParentFolderID is NULL.
const rootKey = ""

// NewTree builds the index. The input slice is not retained; folders are
// copied so callers can mutate their own slice freely.
func NewTree(folders []models.Folder) *Tree {
	t := &Tree{
		nodes:    make(map[string]*models.Folder, len(folders)),
		children: make(map[string][]string),
	}
	for i := range folders {
		f := folders[i]
		t.nodes[f.ID] = &f
	}
	for id, f := range t.nodes {
		key := rootKey
		if f.ParentFolderID != nil {
			key = *f.ParentFolderID
		}
		t.children[key] = append(t.children[key], id)
	}
	for key := range t.children {
		t.sortSiblings(t.children[key])
	}
	return t
}

// sortSiblings orders child ids by display order, then name for stability.
func (t *Tree) sortSiblings(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.Name < b.Name
	})
}

// Get returns the folder with the given id.
func (t *Tree) Get(id string) (*models.Folder, bool) {
	f, ok := t.nodes[id]
	return f, ok
}

// Len returns the number of folders in the scope.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Roots returns the folders with no parent, in sibling order.
func (t *Tree) Roots() []*models.Folder {
	return t.lookup(t.children[rootKey])
}

// Children returns the immediate children of a folder (nil parent = roots).
func (t *Tree) Children(parentID *string) []*models.Folder {
	if parentID == nil {
		return t.Roots()
	}
	return t.lookup(t.children[*parentID])
}

func (t *Tree) lookup(ids []string) []*models.Folder {
	out := make([]*models.Folder, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// Descendants returns every folder id below the given one, breadth-first.
// The starting folder itself is excluded.
func (t *Tree) Descendants(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	queue := append([]string(nil), t.children[id]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		queue = append(queue, t.children[cur]...)
	}
	return out
}

// Closure returns {id} followed by all of its descendants. This is the
// exact set a cascading delete must remove.
func (t *Tree) Closure(id string) []string {
	return append([]string{id}, t.Descendants(id)...)
}

// WouldCycle reports whether reparenting the folder under newParentID would
// make it its own ancestor. A nil parent (move to root) never cycles.
func (t *Tree) WouldCycle(id string, newParentID *string) bool {
	if newParentID == nil {
		return false
	}
	if *newParentID == id {
		return true
	}
	for _, d := range t.Descendants(id) {
		if d == *newParentID {
			return true
		}
	}
	return false
}

// PathTo walks the parent chain and returns the display path from the root,
// slash-separated. The second return is false when the chain is broken or
// cyclic.
func (t *Tree) PathTo(id string) (string, bool) {
	var segments []string
	visited := make(map[string]bool)
	cur, ok := t.nodes[id]
	if !ok {
		return "", false
	}
	for {
		if visited[cur.ID] {
			return "", false // corrupted parent chain
		}
		visited[cur.ID] = true
		segments = append(segments, cur.Name)
		if cur.ParentFolderID == nil {
			break
		}
		parent, ok := t.nodes[*cur.ParentFolderID]
		if !ok {
			return "", false
		}
		cur = parent
	}
	// reverse root..leaf
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	path := ""
	for i, s := range segments {
		if i > 0 {
			path += "/"
		}
		path += s
	}
	return path, true
}
