// Command admin-token prints an admin bearer token signed with
// ADMIN_JWT_SECRET, for calling the admin routes in local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"erpsaas/internal/config"
	"erpsaas/internal/model"
	"erpsaas/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	email := flag.String("email", "admin@localhost", "Email claim")
	ttl := flag.Duration("ttl", time.Hour, "Token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	token, err := util.SignHMAC(cfg.AdminJWTSecret, util.Claims{
		Email: *email,
		Role:  model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   *email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
