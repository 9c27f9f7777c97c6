package rediswr

// Config defines the configuration options for Redis connections.
type Config struct {
	// Addrs is a comma separated list of "host:port" addresses. Only the
	// first one is used outside cluster mode.
	Addrs string `yaml:"addrs" validate:"required"`

	Username string `yaml:"username"`
	Password string `yaml:"password" mask:"true"`

	// DB selects the database. Ignored in cluster mode.
	DB int `yaml:"db" validate:"gte=0"`

	// IsClusterMode indicates whether the addresses belong to a Redis cluster.
	IsClusterMode bool `yaml:"is_cluster_mode"`
}
