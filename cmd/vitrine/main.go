package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"vitrine/internal/config"
	"vitrine/internal/content"
	"vitrine/internal/eventfeed"
	"vitrine/internal/geocode"
	"vitrine/internal/server"
	"vitrine/internal/store"
)

var (
	// Version will be set during build
	Version = "dev"

	// Command line flags
	port     = flag.Int("port", 0, "Port to run the server on (default: 8080 or VITRINE_PORT)")
	dbPath   = flag.String("db", "", "Path to database file (default: data/vitrine.db or VITRINE_DB_PATH)")
	dataPath = flag.String("data", "", "Path to data directory (default: data or VITRINE_DATA_PATH)")
	version  = flag.Bool("version", false, "Print version information")
	prodMode = flag.Bool("prod", false, "Enable production mode (HTTPS-only features including strict CSRF)")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Vitrine version %s\n", Version)
		return
	}

	logger := log.New(os.Stdout, "vitrine: ", log.LstdFlags|log.Lshortfile)

	cfg := config.GetConfig()
	if *port > 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	cfg.ProductionMode = *prodMode

	logger.Printf("Starting Vitrine v%s", Version)
	logger.Printf("Port: %d", cfg.Port)
	logger.Printf("Database: %s", cfg.DBPath)
	logger.Printf("Data directory: %s", cfg.DataPath)
	logger.Printf("Mode: %s", map[bool]string{true: "production", false: "development"}[cfg.ProductionMode])

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("Failed to create database directory: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.DataPath, "static", "images"), 0755); err != nil {
		logger.Fatalf("Failed to create static directory: %v", err)
	}

	db, err := store.Open(cfg.DBPath, store.DefaultConfig())
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	fallback := geocode.Coordinate{Lat: 45.8336, Lng: 1.2611}
	if lat, err := db.GetSettingFloat(ctx, "default_lat"); err == nil {
		fallback.Lat = lat
	}
	if lng, err := db.GetSettingFloat(ctx, "default_lng"); err == nil {
		fallback.Lng = lng
	}
	geocoder := geocode.NewClient(cfg.GeocoderURL, fallback, logger)

	contentSvc := content.NewService(db, logger)

	feedSvc := eventfeed.NewService(db, logger)
	feedSvc.Start()
	defer feedSvc.Stop()

	if err := feedSvc.ImportAll(ctx); err != nil {
		logger.Printf("Initial partner feed import failed: %v", err)
	}

	srv, err := server.NewServer(db, logger, contentSvc, feedSvc, geocoder, server.Config{
		UseHTTPS:       cfg.ProductionMode,
		ProductionMode: cfg.ProductionMode,
		DataPath:       cfg.DataPath,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize server: %v", err)
	}

	logger.Printf("Starting server on port %d", cfg.Port)
	if err := srv.Start(cfg.GetAddress()); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
}
