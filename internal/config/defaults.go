package config

// Default clustering policy. Alpha is the re-embed nudge strength; seed makes
// K-Means output reproducible for identical input.
const (
	DefaultTargetClusters     = 5
	DefaultAlpha              = 0.3
	DefaultMaxIterations      = 300
	DefaultNInit              = 10
	DefaultSeed               = 42
	DefaultStabilityThreshold = 0.90
	DefaultDebounceSeconds    = 2.0
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9999
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/latentfs/data/documents.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 30
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Naming.TimeoutSeconds == 0 {
		cfg.Naming.TimeoutSeconds = 10
	}
	if cfg.Naming.SampleSize == 0 {
		cfg.Naming.SampleSize = 3
	}
	if cfg.Cluster.TargetClusters == 0 {
		cfg.Cluster.TargetClusters = DefaultTargetClusters
	}
	if cfg.Cluster.Alpha == 0 {
		cfg.Cluster.Alpha = DefaultAlpha
	}
	if cfg.Cluster.MaxIterations == 0 {
		cfg.Cluster.MaxIterations = DefaultMaxIterations
	}
	if cfg.Cluster.NInit == 0 {
		cfg.Cluster.NInit = DefaultNInit
	}
	if cfg.Cluster.Seed == 0 {
		cfg.Cluster.Seed = DefaultSeed
	}
	if cfg.Cluster.StabilityThreshold == 0 {
		cfg.Cluster.StabilityThreshold = DefaultStabilityThreshold
	}
	if cfg.Cluster.DebounceSeconds == 0 {
		cfg.Cluster.DebounceSeconds = DefaultDebounceSeconds
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
}
