package model

// DeviceRecord is the persisted alert memory for one printer, keyed by address.
type DeviceRecord struct {
	Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
	LastSeen       Date            `json:"last_seen,omitzero" yaml:"last_seen,omitempty"`
	OfflineAlerted bool            `json:"offline_alerted" yaml:"offline_alerted"`
	TonerAlerted   map[string]Date `json:"toner_alerted,omitempty" yaml:"toner_alerted,omitempty"`
}

// Clone returns a deep copy of the record.
func (r DeviceRecord) Clone() DeviceRecord {
	out := r
	if r.TonerAlerted != nil {
		out.TonerAlerted = make(map[string]Date, len(r.TonerAlerted))
		for name, d := range r.TonerAlerted {
			out.TonerAlerted[name] = d
		}
	}
	return out
}

// State is the whole alert store: one record per device address.
type State map[string]DeviceRecord

// SupplyReading holds the raw values read for one consumable index.
// Err is set when the level or capacity could not be queried at all.
type SupplyReading struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Level    string `json:"level"`
	Capacity string `json:"capacity"`
	Err      error  `json:"-"`
}

// ProbeResult is everything the protocol client learned about a device in one run.
type ProbeResult struct {
	Reachable bool
	Model     string
	// SuppliesKnown is false when the consumable table could not be enumerated.
	SuppliesKnown bool
	Supplies      []SupplyReading
}

// AlertKind distinguishes the two alert intents the engine can raise.
type AlertKind string

const (
	AlertOffline AlertKind = "offline"
	AlertToner   AlertKind = "toner"
)

// AlertIntent describes an alert that should be delivered. It carries no
// delivery details; those belong to the notifiers.
type AlertIntent struct {
	Kind        AlertKind `json:"kind"`
	Address     string    `json:"address"`
	DisplayName string    `json:"display_name"`
	DaysSilent  int       `json:"days_silent,omitempty"`
	Supplies    []string  `json:"supplies,omitempty"`
}
