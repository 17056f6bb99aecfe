package topology

import "golang.org/x/xerrors"

// ErrNilKey is returned when a key structure contains an empty or unknown node.
var ErrNilKey = xerrors.New("nil key")

// frame is the evaluation state of a composite node on the stack.
type frame struct {
	children []Key
	need     int
	index    int
	count    int
}

func newFrame(key Key) frame {
	switch k := key.(type) {
	case ThresholdKey:
		return frame{children: k.Keys, need: int(k.Threshold)}
	case KeyList:
		return frame{children: k.Keys, need: len(k.Keys)}
	default:
		return frame{}
	}
}

// done returns true when the outcome of the frame is known, either because
// enough children are satisfied or because not enough are left. A threshold
// above the number of children is detected by the latter.
func (f frame) done() bool {
	if f.count >= f.need {
		return true
	}

	return f.count+(len(f.children)-f.index) < f.need
}

// leaf evaluates the key if it is not a composite node. The second return
// value is false for composite nodes.
func leaf(key Key, present KeySet) (bool, bool) {
	switch k := key.(type) {
	case SimpleKey:
		return len(k.PublicKey) > 0 && present.Contains(k.PublicKey), true
	case ThresholdKey, KeyList:
		return false, false
	default:
		// Unknown or nil nodes are never satisfied.
		return false, true
	}
}

// IsSatisfied returns true if the set of present keys satisfies the key
// structure. Each child of a node is evaluated independently against the same
// set, so a key may count for several children.
func IsSatisfied(root Key, present KeySet) bool {
	res, isLeaf := leaf(root, present)
	if isLeaf {
		return res
	}

	stack := []frame{newFrame(root)}

	for {
		top := &stack[len(stack)-1]

		if top.done() {
			res = top.count >= top.need
			stack = stack[:len(stack)-1]

			if len(stack) == 0 {
				return res
			}

			parent := &stack[len(stack)-1]
			if res {
				parent.count++
			}
			parent.index++

			continue
		}

		child := top.children[top.index]

		value, isLeaf := leaf(child, present)
		if isLeaf {
			if value {
				top.count++
			}
			top.index++

			continue
		}

		stack = append(stack, newFrame(child))
	}
}

// AllSatisfied returns true if every key structure is satisfied by the set.
// An empty list of structures is always satisfied.
func AllSatisfied(keys []Key, present KeySet) bool {
	for _, key := range keys {
		if !IsSatisfied(key, present) {
			return false
		}
	}

	return true
}

type depthItem struct {
	key   Key
	depth int
}

// Depth returns the nesting depth of the key structure. A simple key has a
// depth of one.
func Depth(root Key) int {
	max := 0

	stack := []depthItem{{key: root, depth: 1}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > max {
			max = item.depth
		}

		for _, child := range children(item.key) {
			stack = append(stack, depthItem{key: child, depth: item.depth + 1})
		}
	}

	return max
}

// Validate returns an error if the key structure has an empty node, an empty
// public key, or if it is deeper than the maximum depth. A maximum of zero
// disables the depth check. The walk stops as soon as the maximum is exceeded.
func Validate(root Key, maxDepth int) error {
	stack := []depthItem{{key: root, depth: 1}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if maxDepth > 0 && item.depth > maxDepth {
			return xerrors.Errorf("depth %d exceeds %d", item.depth, maxDepth)
		}

		switch k := item.key.(type) {
		case SimpleKey:
			if len(k.PublicKey) == 0 {
				return xerrors.New("empty public key")
			}
		case ThresholdKey, KeyList:
			for _, child := range children(k) {
				stack = append(stack, depthItem{key: child, depth: item.depth + 1})
			}
		default:
			return ErrNilKey
		}
	}

	return nil
}

// Keys returns every public key of the structure in the order of a depth-first
// walk.
func Keys(root Key) []PublicKey {
	var res []PublicKey

	stack := []Key{root}

	for len(stack) > 0 {
		key := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if simple, ok := key.(SimpleKey); ok {
			res = append(res, simple.PublicKey)
			continue
		}

		list := children(key)
		for i := len(list) - 1; i >= 0; i-- {
			stack = append(stack, list[i])
		}
	}

	return res
}

func children(key Key) []Key {
	switch k := key.(type) {
	case ThresholdKey:
		return k.Keys
	case KeyList:
		return k.Keys
	default:
		return nil
	}
}
