package graph

import "sort"

// UnionFind groups node ids into connected components using union by size
// and path halving.
type UnionFind struct {
	parent map[string]string
	size   map[string]int
	count  int
}

// NewUnionFind starts with every id in its own component.
func NewUnionFind(ids []string) *UnionFind {
	uf := &UnionFind{
		parent: make(map[string]string, len(ids)),
		size:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		if _, dup := uf.parent[id]; dup {
			continue
		}
		uf.parent[id] = id
		uf.size[id] = 1
		uf.count++
	}
	return uf
}

// Find returns the representative of id. Unknown ids are their own root.
func (uf *UnionFind) Find(id string) string {
	if _, ok := uf.parent[id]; !ok {
		return id
	}
	for uf.parent[id] != id {
		grand := uf.parent[uf.parent[id]]
		uf.parent[id] = grand
		id = grand
	}
	return id
}

// Union joins the components of a and b and reports whether they were apart.
func (uf *UnionFind) Union(a, b string) bool {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return false
	}
	if _, ok := uf.parent[ra]; !ok {
		return false
	}
	if _, ok := uf.parent[rb]; !ok {
		return false
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	delete(uf.size, rb)
	uf.count--
	return true
}

// Size returns the number of ids in the component of id.
func (uf *UnionFind) Size(id string) int {
	return uf.size[uf.Find(id)]
}

// Count returns the number of components.
func (uf *UnionFind) Count() int {
	return uf.count
}

// Components lists every component, largest first. Members are sorted and
// equal sizes are ordered by their first member.
func (uf *UnionFind) Components() [][]string {
	groups := make(map[string][]string, uf.count)
	for id := range uf.parent {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}
	out := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i][0] < out[j][0]
	})
	return out
}
