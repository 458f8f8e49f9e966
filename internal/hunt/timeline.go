package hunt

import "sort"

// deadline is a continuation scheduled on the simulation clock.
type deadline struct {
	at  float64
	seq uint64
	run func(at float64)
}

// timeline runs deadlines from the tick. Nothing here uses wall-clock timers, so
// cancelling is just dropping the list.
type timeline struct {
	items []deadline
	seq   uint64
}

func (t *timeline) schedule(at float64, run func(at float64)) {
	t.seq++
	t.items = append(t.items, deadline{at: at, seq: t.seq, run: run})
}

// advance runs every deadline due by now in (at, seq) order, including ones scheduled by
// earlier actions in the same call.
func (t *timeline) advance(now float64) {
	for {
		due := -1
		for i, d := range t.items {
			if d.at > now {
				continue
			}
			if due < 0 || d.at < t.items[due].at || (d.at == t.items[due].at && d.seq < t.items[due].seq) {
				due = i
			}
		}
		if due < 0 {
			return
		}
		d := t.items[due]
		t.items = append(t.items[:due], t.items[due+1:]...)
		d.run(d.at)
	}
}

func (t *timeline) cancel() {
	t.items = nil
}

func (t *timeline) pending() int {
	return len(t.items)
}

// deadlines returns the scheduled times in order, for inspection.
func (t *timeline) deadlines() []float64 {
	out := make([]float64, len(t.items))
	for i, d := range t.items {
		out[i] = d.at
	}
	sort.Float64s(out)
	return out
}
