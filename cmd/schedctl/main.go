// cmd/schedctl/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/scheduleclient"
)

const usage = `usage: schedctl <command> [flags]

commands:
  login   -username NAME [-password PASSWORD]   store a bearer token
  grid    -team ID [-week YYYY-MM-DD]           print the week grid
  paint   -team ID -from "Monday/3:00 PM" -to "Wednesday/5:00 PM" -type practice [-title T] [-week W -one-off]
  erase   -team ID -from CELL -to CELL [-week W]
  watch   -team ID                              stream live changes

Every command accepts -server (default $ROSTERFORGE_URL or http://localhost:8080).`

// session is what login leaves behind for later commands.
type session struct {
	Server    string    `json:"server"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	TeamID    string    `json:"team_id,omitempty"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "login":
		err = runLogin(ctx, args)
	case "grid":
		err = runGrid(ctx, args)
	case "paint":
		err = runPaint(ctx, args)
	case "erase":
		err = runErase(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		var statusErr *scheduleclient.StatusError
		if errors.As(err, &statusErr) {
			fmt.Fprintf(os.Stderr, "schedctl: server said %d: %s\n", statusErr.StatusCode, statusErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "schedctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func defaultServer() string {
	if server := strings.TrimSpace(os.Getenv("ROSTERFORGE_URL")); server != "" {
		return server
	}
	return "http://localhost:8080"
}

func sessionPath() (string, error) {
	if path := os.Getenv("SCHEDCTL_SESSION"); path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "rosterforge", "session.json"), nil
}

func saveSession(s session) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func loadSession() (session, error) {
	path, err := sessionPath()
	if err != nil {
		return session{}, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return session{}, nil
	}
	if err != nil {
		return session{}, fmt.Errorf("read session: %w", err)
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		return session{}, fmt.Errorf("decode session %s: %w", path, err)
	}
	return s, nil
}

// newClient builds a client for server, reusing the stored token when it was issued by the
// same server and has not expired.
func newClient(server string) (*scheduleclient.Client, session, error) {
	s, err := loadSession()
	if err != nil {
		return nil, session{}, err
	}
	if server == "" {
		server = s.Server
	}
	if server == "" {
		server = defaultServer()
	}
	var opts []scheduleclient.Option
	if token := os.Getenv("ROSTERFORGE_TOKEN"); token != "" {
		opts = append(opts, scheduleclient.WithToken(token))
	} else if s.Token != "" && s.Server == server && time.Now().Before(s.ExpiresAt) {
		opts = append(opts, scheduleclient.WithToken(s.Token))
	}
	client, err := scheduleclient.New(server, opts...)
	if err != nil {
		return nil, session{}, err
	}
	return client, s, nil
}
