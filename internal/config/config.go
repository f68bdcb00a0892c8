package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string        `yaml:"env" env-default:"local"`
	StoragePath string        `yaml:"storage_path" env-required:"true"`
	API         APIConfig     `yaml:"api"`
	Aladhan     AladhanConfig `yaml:"aladhan"`
	Prayer      PrayerConfig  `yaml:"prayer"`
	Stats       StatsConfig   `yaml:"stats"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"10s"`
}

type AladhanConfig struct {
	BaseURL string `yaml:"base_url" env-default:"https://api.aladhan.com/v1"`
}

type PrayerConfig struct {
	Method int `yaml:"method" env-default:"2"`
	School int `yaml:"school" env-default:"0"`
}

type StatsConfig struct {
	WindowDays int `yaml:"window_days" env-default:"30"`
}

func LoadConfig(path string) *Config {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file not found: " + path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("failed to read config: " + err.Error())
	}

	return &cfg
}
