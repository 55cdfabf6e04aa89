// Package main issues development bearer tokens.
// Usage: token --role manager [--user <uuid>] [--name "Site Manager"]
package main

import (
	"flag"
	"fmt"
	"os"

	"buildledger/internal/config"
	"buildledger/internal/core/actor"
	"buildledger/internal/core/id"
	"buildledger/internal/infrastructure/auth"
)

func main() {
	role := flag.String("role", "", "role: admin, manager, accountant, storekeeper, supervisor or viewer")
	user := flag.String("user", "", "user id (a new one is generated when empty)")
	name := flag.String("name", "", "display name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: load config: %v\n", err)
		os.Exit(1)
	}

	userID := id.New()
	if *user != "" {
		if userID, err = id.Parse(*user); err != nil {
			fmt.Printf("Error: invalid --user: %v\n", err)
			os.Exit(1)
		}
	}
	if *name == "" {
		*name = *role
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	token, expires, err := auth.NewJWTService(jwtConfig).GenerateAccessToken(userID, actor.Role(*role), *name)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("user:    %s\nrole:    %s\nexpires: %s\n\n%s\n", userID, *role, expires.Format("2006-01-02 15:04:05 MST"), token)
}
