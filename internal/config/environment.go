// internal/config/environment.go
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port           int
	DBPath         string
	DataPath       string
	GeocoderURL    string
	ProductionMode bool
}

func GetConfig() Config {
	config := Config{
		Port:        8080, // default port
		DBPath:      "data/vitrine.db",
		DataPath:    "data",
		GeocoderURL: "https://nominatim.openstreetmap.org/search",
	}

	// Override with environment variables if present
	if port := os.Getenv("VITRINE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}

	if dbPath := os.Getenv("VITRINE_DB_PATH"); dbPath != "" {
		config.DBPath = dbPath
	}

	if dataPath := os.Getenv("VITRINE_DATA_PATH"); dataPath != "" {
		config.DataPath = dataPath
	}

	if geocoderURL := os.Getenv("VITRINE_GEOCODER_URL"); geocoderURL != "" {
		config.GeocoderURL = geocoderURL
	}

	return config
}

func (c Config) GetAddress() string {
	return fmt.Sprintf(":%d", c.Port)
}
