package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"tictactoe_relay/internal/config"
	"tictactoe_relay/internal/service"
)

func main() {
	player := flag.String("player", "", "player name written to the token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "error: RELAY_JWT_SECRET is not set")
		os.Exit(1)
	}

	token, err := service.NewTokenAuth(cfg.JWTSecret).IssueJWT(*player, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
