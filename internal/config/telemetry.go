package config

// TelemetryConfig controls OpenTelemetry tracing.  Tracing is opt-in: it is
// active only when OTEL_ENABLED is not false and OTEL_ENDPOINT is set.
type TelemetryConfig struct {
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	Endpoint string `env:"OTEL_ENDPOINT"`
}

func LoadTelemetryConfig() TelemetryConfig {
	var tc TelemetryConfig
	if err := parse(&tc); err != nil {
		return TelemetryConfig{}
	}
	return tc
}

// Active reports whether spans should be exported.
func (t TelemetryConfig) Active() bool {
	return t.Enabled && t.Endpoint != ""
}
