package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the cluster configuration file. Only the S3 section is read
// here; JSON files parse as well since JSON is a subset of YAML.
type Config struct {
	AWS AWSConfig `yaml:"AWS"`
}

// AWSConfig groups the AWS settings of the cluster configuration.
type AWSConfig struct {
	Profile string   `yaml:"profile,omitempty"`
	S3      S3Config `yaml:"S3"`
}

// S3Config locates the bucket that holds bootstrap resources.
//
// Cluster files written for the older tooling name the bucket
// resourcesBucket and the key prefix resourcesDirectory. Both are accepted
// and fill Bucket and Prefix when those are unset.
type S3Config struct {
	Bucket       string `yaml:"bucket,omitempty"`
	Prefix       string `yaml:"prefix,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	ResourcesDir string `yaml:"resourcesDir,omitempty"`

	ResourcesBucket    string `yaml:"resourcesBucket,omitempty"`
	ResourcesDirectory string `yaml:"resourcesDirectory,omitempty"`
}

// DefaultRegion is used when neither the file, the environment nor the
// shared AWS profile names a region.
const DefaultRegion = "us-east-1"

const defaultResourcesDir = "resources/s3"

// LoadConfig reads and validates a cluster configuration file. A relative
// resourcesDir is resolved against the directory of the file. Region is
// left empty when the file does not set it.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	s3 := &cfg.AWS.S3
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	if s3.Bucket == "" {
		s3.Bucket = strings.TrimSpace(s3.ResourcesBucket)
	}
	if s3.Bucket == "" {
		return nil, fmt.Errorf("config %s: AWS.S3.bucket (or AWS.S3.resourcesBucket) is required", path)
	}
	if s3.Prefix == "" {
		s3.Prefix = s3.ResourcesDirectory
	}
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
	if s3.ResourcesDir == "" {
		s3.ResourcesDir = defaultResourcesDir
	}
	if !filepath.IsAbs(s3.ResourcesDir) {
		s3.ResourcesDir = filepath.Join(filepath.Dir(path), s3.ResourcesDir)
	}
	return &cfg, nil
}
