package config

// Config represents the main configuration structure
type Config struct {
	Host                      string          `json:"host"`
	WSPort                    int             `json:"wsPort"`
	LogLevel                  string          `json:"logLevel"`
	ParseCacheSize            int             `json:"parseCacheSize"`
	MaxSubscriptionsPerClient int             `json:"maxSubscriptionsPerClient"`
	Profiles                  []ProfileConfig `json:"profiles"`
}

// ProfileConfig names one backend profile and its resolver script
type ProfileConfig struct {
	Name    string `json:"name"`
	Script  string `json:"script"` // path to the resolver script
	Default bool   `json:"default"`
}

// Default configuration values
const (
	DefaultHost                      = "0.0.0.0"
	DefaultWSPort                    = 8080
	DefaultLogLevel                  = "info"
	DefaultParseCacheSize            = 256
	DefaultMaxSubscriptionsPerClient = 100
)
