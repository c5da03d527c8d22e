package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/noah-isme/sma-room-schedule/internal/models"
	"github.com/noah-isme/sma-room-schedule/internal/service"
	"github.com/noah-isme/sma-room-schedule/pkg/config"
	"github.com/noah-isme/sma-room-schedule/pkg/logger"
)

// issue-token mints a bearer token for the admin routes using the configured JWT secret.
func main() {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "subject", "ops", "Token subject")
	flag.StringVar(&role, "role", models.RoleAdmin, "Token role")
	flag.DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if ttl <= 0 {
		ttl = cfg.JWT.Expiration
	}
	auth := service.NewAuthService(service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		Expiration: ttl,
	}, logr)

	token, expires, err := auth.IssueToken(subject, role)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Fprintln(os.Stdout, token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
}
