// vitrinectl is the operator companion tool: first admin account,
// partner feed imports, geocoding backfills and demo data, all without
// going through the web UI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"vitrine/internal/auth"
	"vitrine/internal/config"
	"vitrine/internal/eventfeed"
	"vitrine/internal/geocode"
	"vitrine/internal/store"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: vitrinectl <command> [flags]

Commands:
  create-admin      Create an admin account
  add-feed          Register a partner event feed
  import-events     Run a one-off import of all partner feeds
  geocode-backfill  Resolve coordinates for rows that have an address but no position
  seed              Insert demo content into an empty database
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	logger := log.New(os.Stdout, "vitrinectl: ", log.LstdFlags)
	cfg := config.GetConfig()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatalf("Failed to create database directory: %v", err)
	}
	db, err := store.Open(cfg.DBPath, store.DefaultConfig())
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch os.Args[1] {
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
		username := fs.String("username", "", "Admin username")
		password := fs.String("password", "", "Admin password (8 characters minimum)")
		fs.Parse(os.Args[2:])
		if *username == "" || *password == "" {
			logger.Fatal("Both -username and -password are required")
		}
		if err := auth.NewService().CreateUser(db.DB, *username, *password); err != nil {
			logger.Fatalf("Failed to create admin: %v", err)
		}
		logger.Printf("Admin user %q created", *username)

	case "add-feed":
		fs := flag.NewFlagSet("add-feed", flag.ExitOnError)
		url := fs.String("url", "", "Partner feed URL")
		fs.Parse(os.Args[2:])
		if *url == "" {
			logger.Fatal("-url is required")
		}
		svc := eventfeed.NewService(db, logger)
		if err := svc.AddFeed(ctx, *url); err != nil {
			logger.Fatalf("Failed to add feed: %v", err)
		}
		logger.Printf("Feed %s registered", *url)

	case "import-events":
		svc := eventfeed.NewService(db, logger)
		if err := svc.ImportAll(ctx); err != nil {
			logger.Fatalf("Import failed: %v", err)
		}
		logger.Printf("Import finished")

	case "geocode-backfill":
		if err := geocodeBackfill(ctx, db, cfg.GeocoderURL, logger); err != nil {
			logger.Fatalf("Backfill failed: %v", err)
		}

	case "seed":
		if err := seed(ctx, db); err != nil {
			logger.Fatalf("Seeding failed: %v", err)
		}
		logger.Printf("Demo content inserted")

	default:
		usage()
	}
}

// Tables that carry a street address and a resolvable position.
var geocodableTables = []string{"accommodations", "places", "walks", "events"}

func geocodeBackfill(ctx context.Context, db *store.Store, geocoderURL string, logger *log.Logger) error {
	fallback := geocode.Coordinate{Lat: 45.8336, Lng: 1.2611}
	if lat, err := db.GetSettingFloat(ctx, "default_lat"); err == nil {
		fallback.Lat = lat
	}
	if lng, err := db.GetSettingFloat(ctx, "default_lng"); err == nil {
		fallback.Lng = lng
	}
	geocoder := geocode.NewClient(geocoderURL, fallback, logger)

	resolved := 0
	for _, table := range geocodableTables {
		rows, err := db.Select(ctx, table, nil, store.Order{})
		if err != nil {
			return fmt.Errorf("reading %s: %w", table, err)
		}
		for _, rec := range rows {
			addr, _ := store.NullableString(rec, "address")
			if addr == "" {
				continue
			}
			if hasCoordinates(rec) {
				continue
			}
			coord, ok := geocoder.Resolve(ctx, addr)
			if !ok {
				logger.Printf("No result for %q, skipping", addr)
				continue
			}
			id, _ := store.NullableString(rec, "id")
			if err := db.Update(ctx, table, id, store.Record{"lat": coord.Lat, "lng": coord.Lng}); err != nil {
				return fmt.Errorf("updating %s/%s: %w", table, id, err)
			}
			resolved++
			// Nominatim asks for at most one request per second.
			time.Sleep(time.Second)
		}
	}
	logger.Printf("Resolved %d addresses", resolved)
	return nil
}

func hasCoordinates(rec store.Record) bool {
	lat, hasLat := rec["lat"]
	lng, hasLng := rec["lng"]
	if !hasLat || !hasLng || lat == nil || lng == nil {
		return false
	}
	latF, _ := lat.(float64)
	lngF, _ := lng.(float64)
	return latF != 0 || lngF != 0
}

func seed(ctx context.Context, db *store.Store) error {
	now := time.Now().UTC().Format("2006-01-02 15:04:05")

	seedRows := map[string][]store.Record{
		"accommodations": {
			{"name": "Gîte des Chênes", "type": "gite", "status": "published",
				"description": "Grand gîte familial à la lisière de la forêt.",
				"capacity":    8, "bedrooms": 4, "price_per_night": 120,
				"amenities": `["WiFi","Parking","Jardin"]`, "updated_at": now},
			{"name": "Chambre du Moulin", "type": "chambre_dhote", "status": "draft",
				"description": "Chambre d'hôte au bord de la rivière.",
				"capacity":    2, "bedrooms": 1, "price_per_night": 75, "updated_at": now},
		},
		"places": {
			{"name": "La Table du Marché", "type": "restaurant", "status": "published",
				"description": "Cuisine de saison, produits locaux.",
				"cuisine":     "traditionnelle", "price_range": "€€", "updated_at": now},
			{"name": "Musée des Arts Populaires", "type": "museum", "status": "published",
				"description": "Collections d'objets de la vie rurale.",
				"entry_fee":   5, "languages": `["fr","en"]`, "updated_at": now},
			{"name": "Base de Loisirs du Lac", "type": "leisure", "status": "published",
				"description": "Baignade surveillée en été, location de pédalos.", "updated_at": now},
		},
		"walks": {
			{"name": "Boucle des Trois Ponts", "type": "boucle", "status": "published",
				"description": "Balade facile le long de la rivière.",
				"distance_km": 6.5, "duration_minutes": 100, "difficulty": "facile",
				"start_point": "Parking de la mairie", "updated_at": now},
		},
		"events": {
			{"title": "Marché de producteurs", "type": "marche", "status": "published",
				"summary":    "Tous les samedis matin sur la place.",
				"start_date": now, "location": "Place du village", "updated_at": now},
		},
		"team_members": {
			{"name": "Claire Dupuis", "role": "Directrice", "email": "direction@example.org",
				"sort_order": 1},
			{"name": "Marc Lenoir", "role": "Conseiller en séjour", "email": "accueil@example.org",
				"sort_order": 2},
		},
		"pages": {
			{"title": "Accès et contact", "slug": "acces", "status": "published",
				"content": "L'office de tourisme vous accueille toute l'année.", "updated_at": now},
		},
	}

	for table, rows := range seedRows {
		for _, row := range rows {
			row["id"] = uuid.NewString()
			if err := db.Insert(ctx, table, row); err != nil {
				return fmt.Errorf("inserting into %s: %w", table, err)
			}
		}
	}
	return nil
}
