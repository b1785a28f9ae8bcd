package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tictactoe_relay/internal/client"
	"tictactoe_relay/internal/config"
	"tictactoe_relay/internal/domain"
	"tictactoe_relay/internal/game"
	"tictactoe_relay/internal/logger"
)

const usage = `usage:
  client new             create a game and wait for an opponent
  client join -id <id>   join an existing game
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var gameID string
	switch args[0] {
	case "new":
	case "join":
		fs := flag.NewFlagSet("join", flag.ContinueOnError)
		fs.StringVar(&gameID, "id", "", "game id to join")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if gameID == "" {
			return errors.New("join requires -id")
		}
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	// игрок видит только подсказки; логи идут в stderr
	log := logger.New(os.Stderr, cfg.LogLevel, cfg.JSONLogs())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx, cfg.WebsocketURL, cfg.RelayToken)
	if err != nil {
		return err
	}
	defer conn.Close()

	moves := client.NewTextMoveSource(stdin, stdout)
	defer moves.Close()

	o := client.NewOrchestrator(conn, moves, log)
	o.OnEvent = func(ev client.Event) {
		switch {
		case ev.Phase == client.PhaseWaitingForOpponent && ev.Move == nil:
			fmt.Fprintf(stdout, "Game ID: %s\nWaiting for opponent...\n", ev.GameID)
		case ev.Phase == client.PhaseWaitingForTurn && ev.Move == nil:
			fmt.Fprintf(stdout, "%s\nWaiting for opponent's move...\n", ev.Board)
		}
	}

	res, err := o.Run(ctx, gameID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return fmt.Errorf("game %s does not exist or has expired", gameID)
		case errors.Is(err, domain.ErrSessionFull):
			return fmt.Errorf("game %s already has two players", gameID)
		}
		return err
	}

	fmt.Fprintf(stdout, "%s\n", res.Board)
	switch {
	case res.Outcome == game.Draw:
		fmt.Fprintln(stdout, "Draw.")
	case res.Won():
		fmt.Fprintln(stdout, "You won!")
	default:
		fmt.Fprintln(stdout, "You lost.")
	}
	return nil
}
