package api

// Config holds server configuration.
type Config struct {
	Port           int
	DataDir        string   // directory holding downloaded translation databases
	BaseURL        string   // remote archive base URL ("" = built-in default)
	AllowedOrigins []string // CORS allowed origins (empty = allow all)
}

// ServerConfig is the active server configuration.
var ServerConfig Config
