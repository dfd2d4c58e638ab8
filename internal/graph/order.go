package graph

// orderedIDs keeps IDs in insertion order with O(1) amortized add/remove.
// Removed slots are tombstoned and compacted once they outnumber live ones.
type orderedIDs struct {
	ids  []string
	pos  map[string]int
	dead int
}

func newOrderedIDs() *orderedIDs {
	return &orderedIDs{pos: make(map[string]int)}
}

func (o *orderedIDs) add(id string) {
	o.pos[id] = len(o.ids)
	o.ids = append(o.ids, id)
}

func (o *orderedIDs) remove(id string) {
	i, ok := o.pos[id]
	if !ok {
		return
	}
	delete(o.pos, id)
	o.ids[i] = ""
	o.dead++
	if o.dead > len(o.pos) {
		o.compact()
	}
}

func (o *orderedIDs) compact() {
	live := make([]string, 0, len(o.pos))
	for _, id := range o.ids {
		if id == "" {
			continue
		}
		o.pos[id] = len(live)
		live = append(live, id)
	}
	o.ids = live
	o.dead = 0
}

func (o *orderedIDs) len() int {
	return len(o.pos)
}

// list returns the live IDs in insertion order.
func (o *orderedIDs) list() []string {
	out := make([]string, 0, len(o.pos))
	for _, id := range o.ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// removeFrom deletes the first occurrence of id from s, preserving order.
func removeFrom(s []string, id string) []string {
	for i, v := range s {
		if v == id {
			return append(s[:i:i], s[i+1:]...)
		}
	}
	return s
}
