package snmp

import (
	"context"
	"strconv"

	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// Probe collects everything the decision engine needs from one device.
// supplyCount <= 0 means the supply table is walked to find the count.
// Query failures never escape: they show up as an unreachable device, an
// unknown supply table, or readings with Err set.
func Probe(ctx context.Context, c Client, address string, supplyCount int) model.ProbeResult {
	if !c.Reachable(ctx, address) {
		return model.ProbeResult{}
	}

	res := model.ProbeResult{Reachable: true}
	if m, err := c.Get(ctx, address, OIDModel); err == nil {
		res.Model = m
	}

	if supplyCount <= 0 {
		n, err := c.CountSupplies(ctx, address)
		if err != nil {
			return res
		}
		supplyCount = n
	}
	res.SuppliesKnown = true

	for i := 1; i <= supplyCount; i++ {
		res.Supplies = append(res.Supplies, readSupply(ctx, c, address, i))
	}
	return res
}

func readSupply(ctx context.Context, c Client, address string, index int) model.SupplyReading {
	suffix := "." + strconv.Itoa(index)
	r := model.SupplyReading{Index: index}

	var err error
	if r.Name, err = c.Get(ctx, address, OIDSupplyName+suffix); err != nil {
		r.Err = err
		return r
	}
	if r.Level, err = c.Get(ctx, address, OIDSupplyLevel+suffix); err != nil {
		r.Err = err
		return r
	}
	if r.Capacity, err = c.Get(ctx, address, OIDSupplyMaximum+suffix); err != nil {
		r.Err = err
	}
	return r
}
