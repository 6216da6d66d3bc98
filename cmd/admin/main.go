// Package main provides maintenance utilities for Rostrum.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"rostrum/internal/bootstrap"
	"rostrum/internal/config"
	"rostrum/internal/repository"
	"rostrum/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin recompute-leaders   - Re-derive every debate leader from current votes")
		fmt.Println("  go run ./cmd/admin list-categories     - List debate categories")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipBlobs: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			log.Printf("Failed to close runtime: %v", err)
		}
	}()

	debates := repository.NewDebateRepository(rt.DB)
	responses := repository.NewResponseRepository(rt.DB)

	switch command := os.Args[1]; command {
	case "recompute-leaders":
		leaders := service.NewLeaderService(rt.DB, debates, responses)
		changed, err := leaders.RecomputeAll(ctx)
		if err != nil {
			log.Fatalf("Recompute failed after %d changes: %v", changed, err)
		}
		fmt.Printf("Recomputed leaders, %d changed\n", changed)

	case "list-categories":
		categories, err := repository.NewCategoryRepository(rt.DB).List(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch categories: %v", err)
		}
		if len(categories) == 0 {
			fmt.Println("No categories found")
			return
		}
		for _, c := range categories {
			fmt.Printf("%4d  %s\n", c.ID, c.Name)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
