// Package main provides role administration utilities for ClaimPro.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"claimpro/internal/bootstrap"
	"claimpro/internal/config"
	"claimpro/internal/database"
	"claimpro/internal/repository"
	"claimpro/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin assign-role <email> <role>   - Grant a role to a user")
	fmt.Println("  go run ./cmd/admin revoke-role <email> <role>   - Remove a role from a user")
	fmt.Println("  go run ./cmd/admin create-role <name>           - Create a role")
	fmt.Println("  go run ./cmd/admin list-roles                   - List all roles")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if err := bootstrap.EnsureBuiltIns(ctx, db); err != nil {
		log.Fatalf("Failed to ensure built-in roles: %v", err)
	}

	roles := service.NewRoleService(repository.NewRoleRepository(db), repository.NewUserRepository(db))

	switch os.Args[1] {
	case "assign-role":
		if len(os.Args) < 4 {
			usage()
		}
		if err := roles.AssignRole(ctx, os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("Failed to assign role: %v", err)
		}
		fmt.Printf("Assigned %s to %s\n", os.Args[3], os.Args[2])

	case "revoke-role":
		if len(os.Args) < 4 {
			usage()
		}
		if err := roles.RevokeRole(ctx, os.Args[2], os.Args[3]); err != nil {
			log.Fatalf("Failed to revoke role: %v", err)
		}
		fmt.Printf("Revoked %s from %s\n", os.Args[3], os.Args[2])

	case "create-role":
		if len(os.Args) < 3 {
			usage()
		}
		role, created, err := roles.CreateRole(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Failed to create role: %v", err)
		}
		if !created {
			fmt.Printf("Role %s already exists\n", role.Name)
			return
		}
		fmt.Printf("Created role %s (ID: %d)\n", role.Name, role.ID)

	case "list-roles":
		list, err := roles.ListRoles(ctx)
		if err != nil {
			log.Fatalf("Failed to list roles: %v", err)
		}
		for _, r := range list {
			fmt.Printf("ID: %d | %s\n", r.ID, r.Name)
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
}
