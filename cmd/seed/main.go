// Command main seeds demo accounts and claims.
package main

import (
	"context"
	"flag"
	"log"

	"claimpro/internal/config"
	"claimpro/internal/database"
	"claimpro/internal/seed"
)

func main() {
	numClaims := flag.Int("claims", 40, "Number of claims to create")
	shouldClean := flag.Bool("clean", true, "Remove demo data before seeding")
	password := flag.String("password", seed.DefaultPassword, "Password for newly created demo accounts")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible claims (0 = random)")
	flag.Parse()

	log.Printf("Target: %d claims, clean=%v", *numClaims, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed demo data in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s, err := seed.NewSeeder(db)
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	accounts, err := s.Run(ctx, seed.Options{
		NumClaims:   *numClaims,
		ShouldClean: *shouldClean,
		Password:    *password,
		RandSeed:    *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	for _, a := range accounts {
		log.Printf("demo account: %s", a.Email)
	}
	log.Printf("New demo accounts use the password: %s", *password)
}
