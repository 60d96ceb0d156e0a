package model

// This is only for the configuration, not implementing AWS handler logic.

type AwsConfig struct {
	Profile      string `yaml:"profile"`
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix,omitempty"`
	StorageClass string `yaml:"storageClass,omitempty"`
}

func (a *AwsConfig) GetStorageClass() string {
	if a.StorageClass == "" {
		return "STANDARD"
	}
	return a.StorageClass
}
