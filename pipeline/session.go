package pipeline

// Session is an authenticated session of one device. It is replaced as a
// whole on every authentication and never modified in place.
type Session struct {
	Token string
	// APIServer is the base URL of the API server, including scheme.
	APIServer string
	DeviceID  string
}

// Valid reports whether s can be used to send requests.
func (s Session) Valid() bool {
	return s.Token != "" && s.APIServer != ""
}

// DeviceURL returns the base URL of the device's resources.
func (s Session) DeviceURL() string {
	return s.APIServer + "/SensorCloud/devices/" + s.DeviceID
}
