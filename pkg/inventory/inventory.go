package inventory

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Printer is one statically configured device.
type Printer struct {
	Address string `yaml:"address" mapstructure:"address"`
	// Supplies is the number of supply slots to read; 0 means count them on the device.
	Supplies int    `yaml:"supplies" mapstructure:"supplies"`
	Note     string `yaml:"note,omitempty" mapstructure:"note"`
}

// Inventory is the ordered, read-only set of printers to check.
type Inventory struct {
	printers []Printer
	index    map[string]int
}

// New validates printers and builds an inventory that keeps their order.
func New(printers ...Printer) (*Inventory, error) {
	inv := &Inventory{
		printers: make([]Printer, 0, len(printers)),
		index:    make(map[string]int, len(printers)),
	}
	for _, p := range printers {
		p.Address = strings.TrimSpace(p.Address)
		if err := validateAddress(p.Address); err != nil {
			return nil, err
		}
		if p.Supplies < 0 {
			return nil, fmt.Errorf("printer %s: supplies must not be negative", p.Address)
		}
		if _, exists := inv.index[p.Address]; exists {
			return nil, fmt.Errorf("printer %q listed more than once", p.Address)
		}
		inv.index[p.Address] = len(inv.printers)
		inv.printers = append(inv.printers, p)
	}
	return inv, nil
}

// File is the on-disk layout of an inventory file.
type File struct {
	Printers []Printer `yaml:"printers"`
}

// LoadFile reads a YAML inventory file.
func LoadFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory file %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse inventory file %s: %w", path, err)
	}
	if len(f.Printers) == 0 {
		return nil, fmt.Errorf("inventory file %s: no printers defined", path)
	}

	inv, err := New(f.Printers...)
	if err != nil {
		return nil, fmt.Errorf("inventory file %s: %w", path, err)
	}
	return inv, nil
}

// Printers returns the printers in configured order.
func (i *Inventory) Printers() []Printer {
	out := make([]Printer, len(i.printers))
	copy(out, i.printers)
	return out
}

// Get returns a printer by address.
func (i *Inventory) Get(address string) (Printer, bool) {
	idx, ok := i.index[address]
	if !ok {
		return Printer{}, false
	}
	return i.printers[idx], true
}

// Select returns an inventory holding only the named printers, in the order
// given. Every address must be present.
func (i *Inventory) Select(addresses ...string) (*Inventory, error) {
	picked := make([]Printer, 0, len(addresses))
	for _, addr := range addresses {
		p, ok := i.Get(strings.TrimSpace(addr))
		if !ok {
			return nil, fmt.Errorf("printer %q is not in the inventory", addr)
		}
		picked = append(picked, p)
	}
	return New(picked...)
}

// Len returns the number of printers.
func (i *Inventory) Len() int { return len(i.printers) }

func validateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("printer address is empty")
	}
	if net.ParseIP(addr) != nil {
		return nil
	}
	for _, r := range addr {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
		default:
			return fmt.Errorf("printer address %q is not an IP address or host name", addr)
		}
	}
	return nil
}
