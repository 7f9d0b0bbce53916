// Command main seeds roles, the Admin account and demo content.
package main

import (
	"context"
	"flag"
	"log"

	"spaceofthoughts/internal/config"
	"spaceofthoughts/internal/database"
	"spaceofthoughts/internal/seed"
)

func main() {
	numPosts := flag.Int("posts", 25, "Number of posts to create")
	numCategories := flag.Int("categories", 6, "Number of categories to create")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one")
	shouldClean := flag.Bool("clean", false, "Delete posts, categories and images before seeding")
	flag.Parse()

	log.Printf("Target: %d posts, %d categories, clean=%v", *numPosts, *numCategories, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db)

	if *shouldClean {
		if err := s.ClearContent(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Roles(ctx); err != nil {
		log.Fatalf("Role seeding failed: %v", err)
	}
	created, err := s.Admin(ctx, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Admin seeding failed: %v", err)
	}
	if created {
		log.Println("Created the Admin account")
	}

	res, err := s.Content(ctx, seed.Options{
		NumPosts:      *numPosts,
		NumCategories: *numCategories,
		Seed:          *randSeed,
	})
	if err != nil {
		log.Fatalf("Content seeding failed: %v", err)
	}
	log.Printf("Done: %d categories, %d posts", len(res.Categories), len(res.Posts))
}
