package ir

// Config represents the top-level configuration document.
type Config struct {
	Stores    map[string]*StoreConfig `yaml:"stores"`
	Resources []*Resource             `yaml:"resources"`
}

// StoreConfig holds configuration for a named secret store backend.
type StoreConfig struct {
	Type    string            `yaml:"type"`    // "vault", "awssm", "memory"
	Options map[string]string `yaml:"options"` // backend-specific settings
}
