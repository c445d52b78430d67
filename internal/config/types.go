package config

type Config struct {
	DBPath   string         `yaml:"db_path"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Storage  StorageConfig  `yaml:"storage"`
	Backup   BackupConfig   `yaml:"backup"`
}

type EmbedderConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

type StorageConfig struct {
	Enabled   bool   `yaml:"-"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type BackupConfig struct {
	Bucket   string `yaml:"bucket"`
	Schedule string `yaml:"schedule"`
	Keep     int    `yaml:"keep"`
}
