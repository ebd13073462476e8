package config

const (
	// Required connection variables.
	EnvHost     = "DATABRICKS_HOST"
	EnvToken    = "DATABRICKS_TOKEN"
	EnvHTTPPath = "DATABRICKS_HTTP_PATH"

	// Optional namespace defaults for tools that accept catalog/schema.
	EnvCatalog = "DATABRICKS_CATALOG"
	EnvSchema  = "DATABRICKS_SCHEMA"

	DefaultPort    = 443
	DefaultEnvFile = ".env"
)
