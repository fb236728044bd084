package jsonvalue

// Clone returns a deep copy of n sharing no mutable state with it:
// mutating the clone's arrays or objects never affects the original,
// matching the original engine's copy-on-write-free "json_dup" contract.
func Clone(n *Node) *Node {
	return CloneInto(nil, n)
}

// CloneInto deep-copies src the same way Clone does, but reuses dst's
// backing array/object capacity instead of allocating fresh ones —
// the json.c arena-reuse json_clone pattern, for a caller that repeatedly
// clones into the same scratch node (e.g. re-snapshotting a status
// object on every poll) without growing garbage each time. dst may be
// nil, in which case CloneInto behaves exactly like Clone.
func CloneInto(dst, src *Node) *Node {
	if src == nil {
		if dst == nil {
			return nil
		}
		dst.typ = Null
		return dst
	}
	if dst == nil {
		dst = &Node{}
	}
	dst.typ = src.typ
	switch src.typ {
	case Array:
		dst.arr = dst.arr[:0]
		for _, elem := range src.arr {
			dst.arr = append(dst.arr, Clone(elem))
		}
	case Object:
		if dst.obj == nil {
			dst.obj = newOmap()
		} else {
			dst.obj.reset()
		}
		for _, k := range src.obj.keys() {
			v, _ := src.obj.get(k)
			dst.obj.set(k, Clone(v))
		}
	default:
		dst.b = src.b
		dst.i = src.i
		dst.d = src.d
		dst.s = src.s
	}
	return dst
}
