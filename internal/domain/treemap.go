package domain

import (
	"sort"
	"strings"
)

// Treemap canvas size in pixels.
const (
	TreemapWidth  = 300.0
	TreemapHeight = 550.0
)

const (
	treemapRootName   = "All"
	treemapRootColor  = "#fff"
	unknownSupergroup = "Unknown Supergroup"
	unknownGroup      = "Unknown Group"
	unknownSubgroup   = "Unknown Subgroup"
)

// TreemapNode is a laid-out node of the classification hierarchy.
type TreemapNode struct {
	Name      string         `json:"name"`
	Path      string         `json:"path"`
	Depth     int            `json:"depth"`
	Value     float64        `json:"value"`
	Color     string         `json:"color"`
	TextColor string         `json:"text_color"`
	X0        float64        `json:"x0"`
	Y0        float64        `json:"y0"`
	X1        float64        `json:"x1"`
	Y1        float64        `json:"y1"`
	Children  []*TreemapNode `json:"children,omitempty"`
}

// BuildTreemap groups classified areas as All → supergroup → group → subgroup,
// with each leaf valued by its area count, and lays the tree out.
func BuildTreemap(classes []AreaClass) *TreemapNode {
	root := &TreemapNode{Name: treemapRootName}
	for _, c := range classes {
		sg := child(root, orDefault(c.Supergroup, unknownSupergroup))
		g := child(sg, orDefault(c.Group, unknownGroup))
		leaf := child(g, orDefault(c.Subgroup, unknownSubgroup))
		leaf.Value++
	}

	sumValues(root)
	sortByValue(root)
	decorate(root, nil)

	root.X0, root.Y0, root.X1, root.Y1 = 0, 0, TreemapWidth, TreemapHeight
	layout(root)
	return root
}

func child(parent *TreemapNode, name string) *TreemapNode {
	for _, c := range parent.Children {
		if c.Name == name {
			return c
		}
	}
	c := &TreemapNode{Name: name}
	parent.Children = append(parent.Children, c)
	return c
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func sumValues(n *TreemapNode) float64 {
	if len(n.Children) == 0 {
		return n.Value
	}
	n.Value = 0
	for _, c := range n.Children {
		n.Value += sumValues(c)
	}
	return n.Value
}

// sortByValue orders children by descending value, keeping first-seen order for ties.
func sortByValue(n *TreemapNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Value > n.Children[j].Value
	})
	for _, c := range n.Children {
		sortByValue(c)
	}
}

func decorate(n, parent *TreemapNode) {
	switch {
	case parent == nil:
		n.Color = treemapRootColor
		n.Path = n.Name
	case parent.Depth == 0:
		n.Depth = 1
		n.Path = parent.Path + "/" + n.Name
		n.Color = SupergroupColor(n.Name)
	default:
		n.Depth = parent.Depth + 1
		n.Path = parent.Path + "/" + n.Name
		n.Color = parent.Color
	}
	n.TextColor = ContrastColor(n.Color)
	for _, c := range n.Children {
		decorate(c, n)
	}
}

// layout tiles every node's children. Each split is computed against the full
// canvas aspect ratio and then scaled into the node's rectangle.
func layout(n *TreemapNode) {
	if len(n.Children) == 0 {
		return
	}
	binaryTile(n.Children, n.Value, 0, 0, TreemapWidth, TreemapHeight)
	w, h := n.X1-n.X0, n.Y1-n.Y0
	for _, c := range n.Children {
		c.X0 = n.X0 + c.X0/TreemapWidth*w
		c.X1 = n.X0 + c.X1/TreemapWidth*w
		c.Y0 = n.Y0 + c.Y0/TreemapHeight*h
		c.Y1 = n.Y0 + c.Y1/TreemapHeight*h
		layout(c)
	}
}

// binaryTile recursively halves nodes by cumulative value, splitting the
// longer side of the rectangle each time.
func binaryTile(nodes []*TreemapNode, value, x0, y0, x1, y1 float64) {
	sums := make([]float64, len(nodes)+1)
	for i, n := range nodes {
		sums[i+1] = sums[i] + n.Value
	}

	var partition func(i, j int, value, x0, y0, x1, y1 float64)
	partition = func(i, j int, value, x0, y0, x1, y1 float64) {
		if i >= j-1 {
			n := nodes[i]
			n.X0, n.Y0, n.X1, n.Y1 = x0, y0, x1, y1
			return
		}

		offset := sums[i]
		target := value/2 + offset
		k, hi := i+1, j-1
		for k < hi {
			mid := int(uint(k+hi) >> 1)
			if sums[mid] < target {
				k = mid + 1
			} else {
				hi = mid
			}
		}
		if target-sums[k-1] < sums[k]-target && i+1 < k {
			k--
		}

		left := sums[k] - offset
		right := value - left
		if x1-x0 > y1-y0 {
			xk := x1
			if value != 0 {
				xk = (x0*right + x1*left) / value
			}
			partition(i, k, left, x0, y0, xk, y1)
			partition(k, j, right, xk, y0, x1, y1)
			return
		}
		yk := y1
		if value != 0 {
			yk = (y0*right + y1*left) / value
		}
		partition(i, k, left, x0, y0, x1, yk)
		partition(k, j, right, x0, yk, x1, y1)
	}

	partition(0, len(nodes), value, x0, y0, x1, y1)
}

// Walk visits every node depth first, parents before children.
func (n *TreemapNode) Walk(fn func(*TreemapNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the node at a slash-separated path such as "All/Urbanites".
func (n *TreemapNode) Find(path string) *TreemapNode {
	var found *TreemapNode
	n.Walk(func(node *TreemapNode) {
		if found == nil && strings.EqualFold(node.Path, path) {
			found = node
		}
	})
	return found
}
