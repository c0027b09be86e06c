package config

// Flags carries command-line values that take precedence over the file
// and the environment. Zero values leave the loaded setting alone.
type Flags struct {
	Debug   bool
	Address string
	LogFile string
}

// Apply merges f into c and re-validates.
func (f Flags) Apply(c *Config) error {
	if f.Debug {
		c.Log.Debug = true
	}
	if f.Address != "" {
		c.Server.Address = f.Address
	}
	if f.LogFile != "" {
		c.Log.File = f.LogFile
	}
	return c.Validate()
}
