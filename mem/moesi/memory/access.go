package memory

import (
	"github.com/google/btree"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
)

// access is a bus request that travels through the memory.
type access struct {
	id  string
	req *moesi.BusMsg
}

func newAccess(req *moesi.BusMsg) *access {
	return &access{
		id:  sim.GetIDGenerator().Generate(),
		req: req,
	}
}

func (a *access) TaskID() string {
	return "mem-access-" + a.id
}

// AccessRecord counts the completed accesses to one line.
type AccessRecord struct {
	Addr   uint64
	Reads  uint64
	Writes uint64
}

// Less orders records by address.
func (r *AccessRecord) Less(than btree.Item) bool {
	return r.Addr < than.(*AccessRecord).Addr
}

// AccessLog returns the access counts of every line that memory has served,
// in ascending address order.
func (c *Comp) AccessLog() []AccessRecord {
	records := make([]AccessRecord, 0, c.accessLog.Len())

	c.accessLog.Ascend(func(item btree.Item) bool {
		records = append(records, *item.(*AccessRecord))
		return true
	})

	return records
}

func (c *Comp) logAccess(addr moesi.Address, isWrite bool) {
	key := &AccessRecord{Addr: addr.Raw - addr.ByteOffset}

	record, ok := c.accessLog.Get(key).(*AccessRecord)
	if !ok {
		record = key
		c.accessLog.ReplaceOrInsert(record)
	}

	if isWrite {
		record.Writes++
	} else {
		record.Reads++
	}
}
