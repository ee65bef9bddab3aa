package types

// Payload is the unit exchanged with a storage driver. Data carries the
// namespaced values together with the reserved expiration index; Security
// carries the identity block used to authenticate the payload on load.
type Payload struct {
	Data     map[string]interface{} `json:"data"`
	Security *Security              `json:"security"`
}

// Security is the identity and integrity block stored next to the data.
// EX and RT are unix timestamps; EX == 0 disables the absolute expiry check.
type Security struct {
	ID string `json:"id"`
	IP string `json:"ip"`
	UA string `json:"ua"`
	EX int64  `json:"ex"`
	RT int64  `json:"rt"`
}

// Valid reports whether both top-level sections are present.
func (p Payload) Valid() bool {
	return p.Data != nil && p.Security != nil
}
