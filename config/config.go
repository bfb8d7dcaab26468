package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ConsulConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type Config struct {
	HTTPPort    int    `mapstructure:"http_port"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	LogLevel    string `mapstructure:"log_level"`
	DatabaseURL string `mapstructure:"database_url"`
	ServiceName string `mapstructure:"service_name"`
	// Add JWT Secret Key here instead of hardcoding
	JwtSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
	// InitialPassword is the placeholder password assigned to accounts
	// created by administrators. Those accounts are expected to reset it
	// out of band before first use.
	InitialPassword string       `mapstructure:"initial_password"`
	Consul          ConsulConfig `mapstructure:"consul"`
}

var AppConfig Config

func InitConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable overrides
	viper.SetEnvPrefix("MYAPP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("http_port", 8080)
	viper.SetDefault("grpc_port", 50051)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("service_name", "bookstore-identity")
	viper.SetDefault("jwt_secret", "default-very-insecure-secret-key") // CHANGE THIS IN PRODUCTION
	viper.SetDefault("token_ttl_hours", 24)
	viper.SetDefault("initial_password", "123456")
	viper.SetDefault("consul.enabled", false)
	viper.SetDefault("consul.address", "127.0.0.1:8500")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables.")
		} else {
			panic(fmt.Errorf("fatal error reading config file: %w", err))
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		panic(fmt.Errorf("unable to decode config into struct: %w", err))
	}
}
