package snmp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Printer-MIB and host resources OIDs.
const (
	OIDSysDescr      = ".1.3.6.1.2.1.1.1.0"
	OIDModel         = ".1.3.6.1.2.1.25.3.2.1.3.1" // hrDeviceDescr.1
	OIDSupplyName    = ".1.3.6.1.2.1.43.11.1.1.6.1"
	OIDSupplyLevel   = ".1.3.6.1.2.1.43.11.1.1.9.1"
	OIDSupplyMaximum = ".1.3.6.1.2.1.43.11.1.1.8.1"
)

// ErrNoSuchObject is returned when the agent has no value at the requested OID.
var ErrNoSuchObject = errors.New("no such object")

// Client is the protocol surface the monitor needs from a device.
type Client interface {
	// Reachable reports whether the device answers at all within the probe budget.
	Reachable(ctx context.Context, address string) bool

	// Get reads a single scalar and returns it as cleaned-up text.
	Get(ctx context.Context, address, oid string) (string, error)

	// CountSupplies returns the number of entries in the supply name column.
	CountSupplies(ctx context.Context, address string) (int, error)
}

// Config holds the session parameters for GoSNMPClient.
type Config struct {
	Community    string
	Port         uint16
	Version      string
	Timeout      time.Duration
	Retries      int
	ProbeTimeout time.Duration
	ProbeRetries int
}

// GoSNMPClient implements Client on top of gosnmp, one UDP session per call.
type GoSNMPClient struct {
	cfg     Config
	version gosnmp.SnmpVersion
}

// NewClient validates cfg and fills in defaults.
func NewClient(cfg Config) (*GoSNMPClient, error) {
	version, err := parseVersion(cfg.Version)
	if err != nil {
		return nil, err
	}
	if cfg.Community == "" {
		cfg.Community = "public"
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.ProbeRetries < 0 {
		cfg.ProbeRetries = 0
	}
	return &GoSNMPClient{cfg: cfg, version: version}, nil
}

func parseVersion(v string) (gosnmp.SnmpVersion, error) {
	switch strings.TrimPrefix(strings.ToLower(v), "v") {
	case "", "1":
		return gosnmp.Version1, nil
	case "2c", "2":
		return gosnmp.Version2c, nil
	default:
		return 0, fmt.Errorf("unsupported snmp version %q", v)
	}
}

func (c *GoSNMPClient) session(ctx context.Context, address string, timeout time.Duration, retries int) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:    address,
		Port:      c.cfg.Port,
		Community: c.cfg.Community,
		Version:   c.version,
		Timeout:   timeout,
		Retries:   retries,
		Context:   ctx,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := g.Connect(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, err)
	}
	return g, nil
}

func (c *GoSNMPClient) Reachable(ctx context.Context, address string) bool {
	g, err := c.session(ctx, address, c.cfg.ProbeTimeout, c.cfg.ProbeRetries)
	if err != nil {
		return false
	}
	defer g.Conn.Close()

	packet, err := g.Get([]string{OIDSysDescr})
	return err == nil && packet != nil && packet.Error == gosnmp.NoError
}

func (c *GoSNMPClient) Get(ctx context.Context, address, oid string) (string, error) {
	g, err := c.session(ctx, address, c.cfg.Timeout, c.cfg.Retries)
	if err != nil {
		return "", err
	}
	defer g.Conn.Close()

	packet, err := g.Get([]string{oid})
	if err != nil {
		return "", fmt.Errorf("get %s from %s: %w", oid, address, err)
	}
	if packet.Error != gosnmp.NoError {
		return "", fmt.Errorf("get %s from %s: agent error %s", oid, address, packet.Error)
	}
	if len(packet.Variables) == 0 {
		return "", fmt.Errorf("get %s from %s: %w", oid, address, ErrNoSuchObject)
	}
	return convertPDU(packet.Variables[0])
}

func (c *GoSNMPClient) CountSupplies(ctx context.Context, address string) (int, error) {
	g, err := c.session(ctx, address, c.cfg.Timeout, c.cfg.Retries)
	if err != nil {
		return 0, err
	}
	defer g.Conn.Close()

	count := 0
	err = g.Walk(OIDSupplyName, func(pdu gosnmp.SnmpPDU) error {
		if isMissing(pdu.Type) {
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk supply names on %s: %w", address, err)
	}
	return count, nil
}

func isMissing(t gosnmp.Asn1BER) bool {
	return t == gosnmp.NoSuchObject || t == gosnmp.NoSuchInstance || t == gosnmp.EndOfMibView
}

// convertPDU renders a varbind as text, the way snmpwalk -Ov would minus the type prefix.
func convertPDU(pdu gosnmp.SnmpPDU) (string, error) {
	if isMissing(pdu.Type) {
		return "", fmt.Errorf("%s: %w", pdu.Name, ErrNoSuchObject)
	}

	switch pdu.Type {
	case gosnmp.OctetString, gosnmp.ObjectDescription:
		switch v := pdu.Value.(type) {
		case []byte:
			return CleanValue(string(v)), nil
		case string:
			return CleanValue(v), nil
		default:
			return "", fmt.Errorf("%s: unexpected %T for string type", pdu.Name, pdu.Value)
		}
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64,
		gosnmp.Uinteger32, gosnmp.TimeTicks:
		return gosnmp.ToBigInt(pdu.Value).String(), nil
	case gosnmp.Null:
		return "", nil
	default:
		return CleanValue(fmt.Sprint(pdu.Value)), nil
	}
}

// CleanValue strips double quotes and surrounding whitespace from agent text.
func CleanValue(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}
