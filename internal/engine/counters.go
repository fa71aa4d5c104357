package engine

import "sync/atomic"

// Counters are the scan's diagnostic tallies. They never steer control
// flow; they exist so a run over a multi-gigabyte tape can be judged for
// data quality afterwards. Atomic so the HTTP surfaces can read them
// while the scan is running.
type Counters struct {
	Total          atomic.Uint64 // successfully decoded messages
	Unknown        atomic.Uint64 // unrecognized type bytes, skipped
	DecodeErrors   atomic.Uint64 // malformed bodies, skipped
	DuplicateAdds  atomic.Uint64 // add for an already-tracked reference
	OrphanExecutes atomic.Uint64 // E/C for an untracked reference
	OrphanReplaces atomic.Uint64 // U for an untracked reference
	OrphanCancels  atomic.Uint64 // X for an untracked reference
	OrphanDeletes  atomic.Uint64 // D for an untracked reference

	byType [256]atomic.Uint64
}

func (c *Counters) countType(t byte) {
	c.byType[t].Add(1)
}

// CountersView is a plain copy of the counters for reporting.
type CountersView struct {
	Total          uint64            `json:"total"`
	Unknown        uint64            `json:"unknown"`
	DecodeErrors   uint64            `json:"decodeErrors"`
	DuplicateAdds  uint64            `json:"duplicateAdds"`
	OrphanExecutes uint64            `json:"orphanExecutes"`
	OrphanReplaces uint64            `json:"orphanReplaces"`
	OrphanCancels  uint64            `json:"orphanCancels"`
	OrphanDeletes  uint64            `json:"orphanDeletes"`
	ByType         map[string]uint64 `json:"byType"`
}

// View copies the current counter values.
func (c *Counters) View() CountersView {
	v := CountersView{
		Total:          c.Total.Load(),
		Unknown:        c.Unknown.Load(),
		DecodeErrors:   c.DecodeErrors.Load(),
		DuplicateAdds:  c.DuplicateAdds.Load(),
		OrphanExecutes: c.OrphanExecutes.Load(),
		OrphanReplaces: c.OrphanReplaces.Load(),
		OrphanCancels:  c.OrphanCancels.Load(),
		OrphanDeletes:  c.OrphanDeletes.Load(),
		ByType:         make(map[string]uint64),
	}
	for t := 0; t < 256; t++ {
		if n := c.byType[t].Load(); n > 0 {
			v.ByType[string(byte(t))] = n
		}
	}
	return v
}
