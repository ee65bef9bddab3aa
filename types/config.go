package types

import "time"

type MemoryConfig struct {
	MaxSessions int `yaml:"max_sessions" env:"SESSION_MEMORY_MAX_SESSIONS"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"SESSION_REDIS_ADDR"`
	Password string        `yaml:"password" env:"SESSION_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"SESSION_REDIS_DB"`
	Prefix   string        `yaml:"prefix" env:"SESSION_REDIS_PREFIX"`
	TTL      time.Duration `yaml:"ttl" env:"SESSION_REDIS_TTL"`
}

type BadgerConfig struct {
	// Dir is the on-disk location; empty runs badger in memory.
	Dir    string `yaml:"dir" env:"SESSION_BADGER_DIR"`
	Prefix string `yaml:"prefix" env:"SESSION_BADGER_PREFIX"`
}
