// Package config loads ERW Pulse configuration.
//
// # Configuration Sources
//
// Values are resolved in this order, later sources winning:
//
//	1. Default()
//	2. A YAML file: $ERW_CONFIG_FILE, else config.yaml or configs/config.yaml
//	3. Environment variables prefixed with ERW_
//
// # Environment Variables
//
// Variable names follow the struct nesting:
//
//	ERW_SERVER_PORT=8000
//	ERW_STORE_DRIVER=sqlite
//	ERW_STORE_DSN=file:erw.db
//	ERW_CACHE_BACKEND=redis
//	ERW_CACHE_ADDR=localhost:6379
//	ERW_ARCHIVE_BACKEND=s3
//	ERW_ARCHIVE_BUCKET=erw-uploads
//	ERW_SEED_PATH=data/calcite_5.xlsx
//
// # Validation
//
// Load rejects unknown backends and backends missing the settings they need,
// such as a sqlite store without a DSN or a redis cache without an address.
package config
