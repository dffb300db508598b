package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/connectingdocs/treatment-engine/internal/adapters/database"
	"github.com/connectingdocs/treatment-engine/internal/adapters/search"
	"github.com/connectingdocs/treatment-engine/internal/domain/entities"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/postgres"
	"github.com/connectingdocs/treatment-engine/internal/infrastructure/clients/typesense"
	"github.com/connectingdocs/treatment-engine/pkg/config"
)

type protocolSeed struct {
	name           string
	goalPrimary    string
	goalAdditional []string
	painLevel      string
	downtimeLevel  string
	targetLayers   []string
	devices        []string
	boosters       []string
	sessionsTotal  int
	intervalWeeks  int
	notes          string
}

type solutionSeed struct {
	providerName  string
	clinicName    string
	title         string
	description   string
	focusCategory string
	devices       []string
	boosters      []string
	painLevel     string
	downtimeLevel string
	priceRange    string
	location      string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	var searchRepo *search.TypesenseAdapter
	if err == nil {
		searchRepo = search.NewTypesenseAdapter(tsClient)
		searchRepo.InitSchema(context.Background())
	}

	ctx := context.Background()
	db := goqu.New("postgres", pgClient.DB())

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				match_results,
				reports,
				provider_solutions,
				trending_catalog,
				protocols
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	// 1. Seed treatment protocols
	protocols := []protocolSeed{
		{
			name:           "Gentle Laser Tone-Up",
			goalPrimary:    "anti-aging",
			goalAdditional: []string{"brightening"},
			painLevel:      "low",
			downtimeLevel:  "none",
			targetLayers:   []string{"epidermis"},
			devices:        []string{"LDM"},
			sessionsTotal:  5,
			intervalWeeks:  2,
			notes:          "Entry-level toning pass, suitable for first visits.",
		},
		{
			name:           "Calm Repair Facial",
			goalPrimary:    "soothing",
			goalAdditional: []string{"anti-aging", "hydration"},
			painLevel:      "very_low",
			downtimeLevel:  "none",
			targetLayers:   []string{"epidermis"},
			sessionsTotal:  3,
			intervalWeeks:  1,
		},
		{
			name:           "Ulthera Deep Lift",
			goalPrimary:    "lifting",
			goalAdditional: []string{"elasticity"},
			painLevel:      "medium",
			downtimeLevel:  "low",
			targetLayers:   []string{"SMAS", "dermis"},
			devices:        []string{"Ulthera"},
			sessionsTotal:  1,
			intervalWeeks:  52,
			notes:          "Annual maintenance cadence.",
		},
		{
			name:           "Shurink Contour Program",
			goalPrimary:    "lifting",
			goalAdditional: []string{"sagging"},
			painLevel:      "medium",
			downtimeLevel:  "none",
			targetLayers:   []string{"SMAS"},
			devices:        []string{"Shurink"},
			sessionsTotal:  2,
			intervalWeeks:  12,
		},
		{
			name:           "Exosome Glow Booster",
			goalPrimary:    "anti-aging",
			goalAdditional: []string{"brightening", "hydration"},
			painLevel:      "medium",
			downtimeLevel:  "medium",
			targetLayers:   []string{"dermis"},
			boosters:       []string{"Exosome"},
			sessionsTotal:  4,
			intervalWeeks:  3,
		},
		{
			name:           "Rejuran Healing Course",
			goalPrimary:    "texture",
			goalAdditional: []string{"pore", "anti-aging"},
			painLevel:      "high",
			downtimeLevel:  "medium",
			targetLayers:   []string{"dermis"},
			boosters:       []string{"Rejuran"},
			sessionsTotal:  4,
			intervalWeeks:  4,
		},
		{
			name:           "Potenza Rebuild",
			goalPrimary:    "texture",
			goalAdditional: []string{"scar", "pore"},
			painLevel:      "high",
			downtimeLevel:  "high",
			targetLayers:   []string{"dermis"},
			devices:        []string{"Potenza"},
			sessionsTotal:  3,
			intervalWeeks:  4,
		},
		{
			name:           "Pico Spot Clear",
			goalPrimary:    "pigmentation",
			goalAdditional: []string{"brightening"},
			painLevel:      "low",
			downtimeLevel:  "low",
			targetLayers:   []string{"epidermis", "dermis"},
			devices:        []string{"Pico"},
			sessionsTotal:  5,
			intervalWeeks:  2,
		},
		{
			name:           "Thermage Total Tightening",
			goalPrimary:    "elasticity",
			goalAdditional: []string{"lifting", "sagging"},
			painLevel:      "high",
			downtimeLevel:  "low",
			targetLayers:   []string{"dermis", "SMAS"},
			devices:        []string{"Thermage"},
			sessionsTotal:  1,
			intervalWeeks:  52,
		},
		{
			name:           "Juvelook Volume Restore",
			goalPrimary:    "volume",
			goalAdditional: []string{"anti-aging"},
			painLevel:      "medium",
			downtimeLevel:  "low",
			targetLayers:   []string{"dermis"},
			boosters:       []string{"Juvelook"},
			sessionsTotal:  3,
			intervalWeeks:  4,
		},
	}

	created := 0
	for _, p := range protocols {
		query, args, err := db.Insert("protocols").Rows(goqu.Record{
			"id":                     uuid.New().String(),
			"name":                   p.name,
			"goal_primary":           p.goalPrimary,
			"goal_additional":        pq.Array(p.goalAdditional),
			"pain_level":             p.painLevel,
			"downtime_level":         p.downtimeLevel,
			"target_layers":          pq.Array(p.targetLayers),
			"devices":                pq.Array(p.devices),
			"boosters":               pq.Array(p.boosters),
			"sessions_total":         p.sessionsTotal,
			"session_interval_weeks": p.intervalWeeks,
			"notes":                  p.notes,
			"created_at":             time.Now().UTC(),
			"updated_at":             time.Now().UTC(),
		}).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build protocol insert: %v", err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Printf("Failed to create protocol %s: %v", p.name, err)
			continue
		}
		created++
	}
	log.Printf("Seeded %d/%d protocols", created, len(protocols))

	// 2. Seed the trending catalog
	trendingQuery, trendingArgs, err := db.Insert("trending_catalog").Rows(goqu.Record{
		"version":    time.Now().UTC().Format("2006-01"),
		"keywords":   pq.Array(entities.DefaultTrendingCatalog().Keywords),
		"updated_at": time.Now().UTC(),
	}).ToSQL()
	if err != nil {
		log.Fatalf("Failed to build trending insert: %v", err)
	}
	if _, err := pgClient.DB().ExecContext(ctx, trendingQuery, trendingArgs...); err != nil {
		log.Printf("Failed to seed trending catalog: %v", err)
	} else {
		log.Println("Seeded trending catalog")
	}

	// 3. Seed provider solutions and index them for discovery
	solutions := []solutionSeed{
		{
			providerName:  "Dr. Seo Jihyun",
			clinicName:    "Hannam Aesthetic Clinic",
			title:         "Ulthera Signature Lifting",
			description:   "Focused ultrasound lifting for the lower face and jawline.",
			focusCategory: "lifting",
			devices:       []string{"Ulthera"},
			painLevel:     "medium",
			downtimeLevel: "low",
			priceRange:    "₩₩₩",
			location:      "Hannam-dong, Seoul",
		},
		{
			providerName:  "Dr. Kang Minho",
			clinicName:    "Gangnam Derm Studio",
			title:         "Shurink Lifting Package",
			description:   "HIFU lifting sessions with no downtime.",
			focusCategory: "lifting",
			devices:       []string{"Shurink"},
			painLevel:     "low",
			downtimeLevel: "none",
			priceRange:    "₩₩",
			location:      "Gangnam-gu, Seoul",
		},
		{
			providerName:  "Dr. Park Eunji",
			clinicName:    "Glow Lab Cheongdam",
			title:         "Rejuran and Exosome Skin Repair",
			description:   "Combined booster course for texture and glow.",
			focusCategory: "texture",
			boosters:      []string{"Rejuran", "Exosome"},
			painLevel:     "medium",
			downtimeLevel: "low",
			priceRange:    "₩₩₩",
			location:      "Cheongdam-dong, Seoul",
		},
		{
			providerName:  "Dr. Lim Soyeon",
			clinicName:    "Apgujeong Skin House",
			title:         "Potenza Scar Revision",
			description:   "Microneedle RF program for acne scarring and pores.",
			focusCategory: "scar",
			devices:       []string{"Potenza"},
			painLevel:     "high",
			downtimeLevel: "medium",
			priceRange:    "₩₩",
			location:      "Apgujeong, Seoul",
		},
		{
			providerName:  "Dr. Choi Haneul",
			clinicName:    "Seorae Clinic",
			title:         "Pico Toning Course",
			description:   "Pigmentation and tone correction over five visits.",
			focusCategory: "pigmentation",
			devices:       []string{"Pico"},
			painLevel:     "low",
			downtimeLevel: "none",
			priceRange:    "₩",
			location:      "Seorae Village, Seoul",
		},
		{
			providerName:  "Dr. Yoon Daeun",
			clinicName:    "Itaewon Dermatology",
			title:         "Thermage FLX Full Face",
			description:   "Radiofrequency tightening for elasticity and sagging.",
			focusCategory: "elasticity",
			devices:       []string{"Thermage"},
			painLevel:     "high",
			downtimeLevel: "none",
			priceRange:    "₩₩₩₩",
			location:      "Itaewon, Seoul",
		},
	}

	indexed := 0
	for _, s := range solutions {
		id := uuid.New().String()
		providerID := uuid.New().String()
		query, args, err := db.Insert("provider_solutions").Rows(goqu.Record{
			"id":             id,
			"provider_id":    providerID,
			"provider_name":  s.providerName,
			"clinic_name":    s.clinicName,
			"title":          s.title,
			"description":    s.description,
			"focus_category": s.focusCategory,
			"devices":        pq.Array(s.devices),
			"boosters":       pq.Array(s.boosters),
			"pain_level":     s.painLevel,
			"downtime_level": s.downtimeLevel,
			"price_range":    s.priceRange,
			"location":       s.location,
			"created_at":     time.Now().UTC(),
		}).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build solution insert: %v", err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, query, args...); err != nil {
			log.Printf("Failed to create solution %s: %v", s.title, err)
			continue
		}

		if searchRepo != nil {
			solution := &entities.ProviderSolution{
				ID:            id,
				ProviderID:    providerID,
				ProviderName:  s.providerName,
				ClinicName:    s.clinicName,
				Title:         s.title,
				Description:   s.description,
				FocusCategory: s.focusCategory,
				Devices:       s.devices,
				Boosters:      s.boosters,
				PainLevel:     entities.ParseToleranceLevel(s.painLevel, entities.DefaultProtocolPainLevel),
				DowntimeLevel: entities.ParseToleranceLevel(s.downtimeLevel, entities.DefaultProtocolDowntimeLevel),
			}
			if err := searchRepo.Index(ctx, solution); err != nil {
				log.Printf("Failed to index solution %s: %v", s.title, err)
			} else {
				indexed++
			}
		}
	}
	log.Printf("Seeded %d provider solutions (%d indexed)", len(solutions), indexed)

	// Adapters exist so the seeded data can be verified immediately.
	catalogRepo := database.NewCatalogAdapter(pgClient)
	loaded, err := catalogRepo.ListProtocols(ctx)
	if err != nil {
		log.Fatalf("Verification read failed: %v", err)
	}
	log.Printf("Verification: %d protocols readable", len(loaded))

	log.Println("Seeding complete.")
}
