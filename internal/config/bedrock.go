package config

// BedrockConfig holds Bedrock-specific configuration
type BedrockConfig struct {
	// Region overrides AWS_REGION for the Bedrock runtime client
	Region string `env:"BEDROCK_REGION" yaml:"bedrock_region"`
}
