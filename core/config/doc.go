// Package config provides configuration management for koala-diff.
//
// It utilizes Viper for loading configuration from environment variables
// and an optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, body limit)
//   - Database: MySQL connection details for table sources
//   - Storage: S3/MinIO credentials and bucket settings for object sources
//   - Log: Logging level and format
//   - Diff: Compare engine tunables (memory budget, partitions, workers)
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
