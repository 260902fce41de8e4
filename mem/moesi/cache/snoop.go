package cache

import (
	"github.com/sarchlab/moesisim/mem/moesi"
)

// SnoopRead lets the cache see a read of another cache. A valid copy drops
// to S or O. It supplies its data unless an earlier snoop of the same
// transaction already did.
func (c *Comp) SnoopRead(
	requester int,
	addr uint64,
	alreadySatisfied bool,
) moesi.SnoopResult {
	c.requesterMustBeOther(requester)

	line, found := c.directory.Lookup(c.geometry.Decode(addr))
	if !found {
		return moesi.SnoopResult{Before: moesi.Invalid, After: moesi.Invalid}
	}

	next, actions := c.protocol.Next(line.State, moesi.SnoopRead)
	res := moesi.SnoopResult{
		Hit:      true,
		WasDirty: line.State.IsDirty(),
		Before:   line.State,
		After:    next,
	}

	if moesi.HasAction(actions, moesi.SupplyData) && !alreadySatisfied {
		res.Supplied = true
		res.Data = make([]byte, len(line.Data))
		copy(res.Data, line.Data)
	}

	line.State = next
	c.stats.RecordSnoopHit(c.id)
	c.invokeLineHook(HookPosSnooped, line, res.Before)

	return res
}

// SnoopInvalidate removes the copy that the cache holds. If the copy was
// dirty, its data is returned so that the bus can drain it to memory.
func (c *Comp) SnoopInvalidate(requester int, addr uint64) moesi.SnoopResult {
	c.requesterMustBeOther(requester)

	line, found := c.directory.Lookup(c.geometry.Decode(addr))
	if !found {
		return moesi.SnoopResult{Before: moesi.Invalid, After: moesi.Invalid}
	}

	next, actions := c.protocol.Next(line.State, moesi.SnoopInvalidate)
	res := moesi.SnoopResult{
		Hit:      true,
		WasDirty: line.State.IsDirty(),
		Before:   line.State,
		After:    next,
	}

	if moesi.HasAction(actions, moesi.WriteBack) {
		res.Data = make([]byte, len(line.Data))
		copy(res.Data, line.Data)
	}

	line.State = next
	c.stats.RecordInvalidation(c.id)
	c.invokeLineHook(HookPosLineEvicted, line, res.Before)

	return res
}
