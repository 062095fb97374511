package postgres

// ClientConfig holds PostgreSQL connection configuration.
type ClientConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
}

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// WithHost sets the server host.
func WithHost(host string) ClientOption {
	return func(c *ClientConfig) {
		if host != "" {
			c.Host = host
		}
	}
}

// WithPort sets the server port.
func WithPort(port int) ClientOption {
	return func(c *ClientConfig) {
		if port > 0 {
			c.Port = port
		}
	}
}

// WithCredentials sets user and password.
func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithDatabase sets the database name.
func WithDatabase(db string) ClientOption {
	return func(c *ClientConfig) {
		c.Database = db
	}
}

// WithSSLMode sets the sslmode parameter.
func WithSSLMode(mode string) ClientOption {
	return func(c *ClientConfig) {
		if mode != "" {
			c.SSLMode = mode
		}
	}
}

// WithMaxConns sets the pool size.
func WithMaxConns(n int) ClientOption {
	return func(c *ClientConfig) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}
