package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8000,
			MaxUploadBytes:         10 << 20,
			ShutdownTimeoutSeconds: 10,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		RateLimit: RateLimitConfig{
			CooldownMillis: 1000,
			MaxKeys:        1024,
		},
		Cache: CacheConfig{
			TTLSeconds: 300,
			MaxEntries: 256,
		},
		Ask: AskConfig{
			DefaultK: 3,
			MaxK:     10,
		},
		Hackathon: HackathonConfig{
			Team:             "Rahul",
			ProblemStatement: 5,
		},
	}
}
