package config

import (
	"os"
	"sync"
)

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = &ServerlessConfig{
			IsLambda:     isRunningInLambda(),
			FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
			Region:       os.Getenv("AWS_REGION"),
			Stage:        GetEnv("STAGE", "dev"),
		}
	})
	return serverlessConfig
}

func isRunningInLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// IsServerlessMode returns true if running in serverless mode
func IsServerlessMode() bool {
	return GetServerlessConfig().IsLambda
}

// GetDeploymentMode returns the current deployment mode
func GetDeploymentMode() string {
	if IsServerlessMode() {
		return "serverless"
	}
	return "server"
}

// AdaptForServerless moves the database onto the EFS mount (or /tmp) and
// archives into S3 when running inside Lambda. Outside Lambda the config is
// returned untouched.
func AdaptForServerless(config *Config, serverless *ServerlessConfig) *Config {
	if serverless == nil || !serverless.IsLambda {
		return config
	}

	if config.Database.Path == "./data/ledger.db" {
		if mount := os.Getenv("EFS_MOUNT_PATH"); mount != "" {
			config.Database.Path = mount + "/ledger.db"
		} else {
			config.Database.Path = "/tmp/ledger.db"
		}
	}
	// a single warm container never needs more than one writer
	config.Database.MaxOpenConns = GetEnvAsInt("LAMBDA_DB_MAX_OPEN_CONNS", 2)
	config.Database.MaxIdleConns = 1

	if config.Storage.Type == "local" && config.Storage.Bucket != "" {
		config.Storage.Type = "s3"
		if serverless.Region != "" {
			config.Storage.Region = serverless.Region
		}
	}
	// only /tmp is writable in Lambda
	if config.Storage.Type == "local" {
		config.Storage.BasePath = "/tmp/archives"
	}

	return config
}

// GetOptimizedConfig loads the configuration and adapts it to the deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	return AdaptForServerless(config, GetServerlessConfig()), nil
}
