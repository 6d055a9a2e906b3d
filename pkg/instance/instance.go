package instance

import "os"

// idEnvVars are checked in order; the first non-empty value wins.
var idEnvVars = []string{"CATALOG_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID identifies this process in logs and readiness output.
func GetID() string {
	for _, name := range idEnvVars {
		if id := os.Getenv(name); id != "" {
			return id
		}
	}
	return "local"
}
