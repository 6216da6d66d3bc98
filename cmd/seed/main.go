// Command main runs the database seeder for Rostrum.
package main

import (
	"context"
	"flag"
	"log"

	"rostrum/internal/config"
	"rostrum/internal/database"
	"rostrum/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numDebates := flag.Int("debates", defaults.NumDebates, "Number of debates to create")
	responses := flag.Int("responses", defaults.ResponsesPerDebate, "Responses per debate")
	voteChance := flag.Int("vote-chance", defaults.VoteChance, "Percent chance each user votes on each response")
	randSeed := flag.Int64("seed", 0, "Random seed for a reproducible run (0 uses the clock)")
	shouldClean := flag.Bool("clean", false, "Delete users, debates, responses and votes first")
	categoriesOnly := flag.Bool("categories-only", false, "Only ensure the category catalog")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() && !*categoriesOnly {
		log.Fatal("Refusing to seed demo data in production; use -categories-only")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	s := seed.NewSeeder(db)

	if *categoriesOnly {
		categories, err := s.Categories(ctx)
		if err != nil {
			log.Fatalf("Category seeding failed: %v", err)
		}
		log.Printf("%d categories available", len(categories))
		return
	}

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	report, err := s.Run(ctx, seed.Options{
		NumUsers:           *numUsers,
		NumDebates:         *numDebates,
		ResponsesPerDebate: *responses,
		VoteChance:         *voteChance,
		RandSeed:           *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d debates, %d responses and %d votes",
		report.Users, report.Debates, report.Responses, report.Votes)
}
