package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`

	Database struct {
		Primary struct {
			DSN string
		}
	}

	Uploads struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"uploads"`

	AI struct {
		OpenaiApiKey string `mapstructure:"openai_api_key"`
		GoogleApiKey string `mapstructure:"google_api_key"`

		// Extraction reads document content, so it needs a vision-capable
		// model; batch reasoning works over many document summaries, so it
		// gets a larger-context text model. The selector travels with every
		// call instead of living in the provider.
		Extraction struct {
			Provider string `mapstructure:"provider"`
			Model    string `mapstructure:"model"`
		} `mapstructure:"extraction"`
		Batch struct {
			Provider string `mapstructure:"provider"`
			Model    string `mapstructure:"model"`
		} `mapstructure:"batch"`
		Answers struct {
			Provider string `mapstructure:"provider"`
			Model    string `mapstructure:"model"`
		} `mapstructure:"answers"`
	} `mapstructure:"ai"`

	Redis struct {
		Address  string
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	}

	Worker struct {
		Concurrency int            `mapstructure:"concurrency"`
		Queues      map[string]int `mapstructure:"queues"`
	}
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".") // Look for config.yaml in the current directory

	// Allow Viper to read environment variables
	viper.AutomaticEnv()

	// Explicitly bind the provider API keys so they can be supplied via the
	// conventional env vars without a prefix or config file entry.
	viper.BindEnv("ai.openai_api_key", "OPENAI_API_KEY")
	viper.BindEnv("ai.google_api_key", "GEMINI_API_KEY")
	viper.BindEnv("database.primary.dsn", "DATABASE_URL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if the config file doesn't exist, Viper might rely solely on env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.addr", "localhost")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("uploads.dir", "uploads")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.queues", map[string]int{"documents": 6, "batch": 3, "default": 1})
	viper.SetDefault("ai.extraction.provider", "openai")
	viper.SetDefault("ai.extraction.model", "gpt-4o")
	viper.SetDefault("ai.batch.provider", "gemini")
	viper.SetDefault("ai.batch.model", "gemini-1.5-pro")
	viper.SetDefault("ai.answers.provider", "openai")
	viper.SetDefault("ai.answers.model", "gpt-4o-mini")
}
