package config

// MinimalConfig returns the default configuration after applying edits in
// order. Without edits it is valid.
func MinimalConfig(edits ...func(*Config)) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	for _, edit := range edits {
		edit(&cfg)
	}
	return &cfg
}

func listenOn(addr string) func(*Config) {
	return func(c *Config) { c.Server.ListenAddress = addr }
}

func useStrategy(name string) func(*Config) {
	return func(c *Config) { c.Protection.Strategy = name }
}

func logAt(level string) func(*Config) {
	return func(c *Config) { c.Telemetry.Logging.Level = level }
}
