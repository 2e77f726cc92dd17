package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// APIToken guards the HTTP API. Requests must carry it as a bearer
	// token. Empty disables authentication (local development only).
	APIToken string `env:"HTTP_API_TOKEN" envDefault:""`
}
