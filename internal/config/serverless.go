package config

import (
	"os"
	"sync"
	"time"
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
			IsLambda:     os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",
			FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
			Region:       os.Getenv("AWS_REGION"),
			Stage:        GetEnv("STAGE", "dev"),
		}
	})
	return serverlessConfig
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

// AdaptConfigForServerless moves state onto the Lambda's writable mounts.
// Only the shipped defaults are rewritten; explicit paths are kept.
func AdaptConfigForServerless(config *Config, serverless *ServerlessConfig) *Config {
	if serverless == nil || !serverless.IsLambda {
		return config
	}

	if config.Database.Path == "./data/invoices.db" {
		config.Database.Path = GetEnv("EFS_DB_PATH", "/mnt/efs/invoices.db")
	}

	// one writer per database file across concurrent invocations
	config.Database.MaxOpenConns = 1
	config.Database.MaxIdleConns = 1

	if config.Storage.Type == "local" && config.Storage.LocalPath == "./data/documents" {
		config.Storage.LocalPath = GetEnv("EFS_DOCUMENTS_PATH", "/mnt/efs/documents")
	}

	// API Gateway caps integrations at 29s, so uploads cannot poll for minutes
	if config.Marketplace.UploadTimeout > 25*time.Second {
		config.Marketplace.UploadTimeout = 25 * time.Second
	}

	return config
}

// GetOptimizedConfig returns configuration optimized for the current deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}

	return AdaptConfigForServerless(config, GetServerlessConfig()), nil
}
