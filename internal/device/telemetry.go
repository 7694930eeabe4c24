package device

// Telemetry is what the outer layers get to see of a controller.
type Telemetry struct {
	Address    string         `json:"address"`
	Connection ConnectionType `json:"connection"`
	Battery    Battery        `json:"battery"`
	Accel      float64        `json:"accel"`
	Color      Color          `json:"color"`
}
