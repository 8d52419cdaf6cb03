// cmd/tools/useradd/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rosterforge/rosterforge/internal/api/apiutil"
	"github.com/rosterforge/rosterforge/internal/api/auth"
	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/config"
	"github.com/rosterforge/rosterforge/internal/db"
	dbgen "github.com/rosterforge/rosterforge/internal/db/generated"
)

const usage = `usage: useradd <command> [flags]

commands:
  team    -name NAME [-id ID] [-slug SLUG]
  player  -team TEAM_ID -name NAME [-id ID] [-email EMAIL]
  user    -username NAME -role admin|manager|player [-team TEAM_ID] [-player PLAYER_ID]
          [-player-name NAME] [-email EMAIL] [-password PASSWORD]

The password falls back to USERADD_PASSWORD. CONFIG_PATH selects the config file.`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "team":
		err = addTeam(ctx, database, os.Args[2:])
	case "player":
		err = addPlayer(ctx, database, os.Args[2:])
	case "user":
		err = addUser(ctx, database, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("useradd failed")
	}
}

func addTeam(ctx context.Context, database *db.DB, args []string) error {
	fs := flag.NewFlagSet("team", flag.ExitOnError)
	id := fs.String("id", "", "Team id (default: generated)")
	name := fs.String("name", "", "Team name")
	slug := fs.String("slug", "", "URL slug (default: derived from name)")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}
	params := dbgen.CreateTeamParams{
		ID:   orNewID(*id),
		Name: strings.TrimSpace(*name),
		Slug: strings.TrimSpace(*slug),
	}
	if params.Slug == "" {
		params.Slug = slugify(params.Name)
	}
	team, err := database.Queries.CreateTeam(ctx, params)
	if err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	log.Info().Str("team_id", team.ID).Str("slug", team.Slug).Msg("Team created")
	return nil
}

func addPlayer(ctx context.Context, database *db.DB, args []string) error {
	fs := flag.NewFlagSet("player", flag.ExitOnError)
	id := fs.String("id", "", "Player id (default: generated)")
	teamID := fs.String("team", "", "Team id")
	name := fs.String("name", "", "Player name")
	email := fs.String("email", "", "Player email")
	fs.Parse(args)

	if *teamID == "" || strings.TrimSpace(*name) == "" {
		return errors.New("-team and -name are required")
	}
	player, err := database.Queries.CreatePlayer(ctx, dbgen.CreatePlayerParams{
		ID:     orNewID(*id),
		TeamID: *teamID,
		Name:   strings.TrimSpace(*name),
		Email:  apiutil.ToNullString(strings.TrimSpace(*email)),
	})
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	log.Info().Str("player_id", player.ID).Str("team_id", player.TeamID).Msg("Player created")
	return nil
}

func addUser(ctx context.Context, database *db.DB, args []string) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	username := fs.String("username", "", "Login name")
	roleName := fs.String("role", "", "admin, manager or player")
	teamID := fs.String("team", "", "Team id (manager and player)")
	playerID := fs.String("player", "", "Existing player id (player)")
	playerName := fs.String("player-name", "", "Create a player with this name and link it (player)")
	email := fs.String("email", "", "Email for digests")
	password := fs.String("password", "", "Password (default: $USERADD_PASSWORD)")
	fs.Parse(args)

	role, ok := authz.ParseRole(*roleName)
	if !ok {
		return fmt.Errorf("unknown role %q", *roleName)
	}
	if strings.TrimSpace(*username) == "" {
		return errors.New("-username is required")
	}
	if role != authz.RoleAdmin && *teamID == "" {
		return fmt.Errorf("-team is required for %s", role)
	}
	if role == authz.RolePlayer && *playerID == "" && *playerName == "" {
		return errors.New("player users need -player or -player-name")
	}

	secret := *password
	if secret == "" {
		secret = os.Getenv("USERADD_PASSWORD")
	}
	hash, err := auth.HashPassword(secret)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return database.RunInTx(ctx, func(tx *db.DB) error {
		linkedPlayer := *playerID
		if role == authz.RolePlayer && linkedPlayer == "" {
			player, err := tx.Queries.CreatePlayer(ctx, dbgen.CreatePlayerParams{
				ID:     uuid.NewString(),
				TeamID: *teamID,
				Name:   strings.TrimSpace(*playerName),
				Email:  apiutil.ToNullString(strings.TrimSpace(*email)),
			})
			if err != nil {
				return fmt.Errorf("create player: %w", err)
			}
			linkedPlayer = player.ID
		}

		params := dbgen.CreateUserParams{
			ID:           uuid.NewString(),
			Username:     strings.TrimSpace(*username),
			PasswordHash: hash,
			Role:         string(role),
			Email:        apiutil.ToNullString(strings.TrimSpace(*email)),
		}
		if role != authz.RoleAdmin {
			params.TeamID = apiutil.ToNullString(strings.TrimSpace(*teamID))
		}
		if role == authz.RolePlayer {
			params.PlayerID = apiutil.ToNullString(strings.TrimSpace(linkedPlayer))
		}
		user, err := tx.Queries.CreateUser(ctx, params)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		log.Info().
			Str("user_id", user.ID).
			Str("username", user.Username).
			Str("role", user.Role).
			Str("player_id", linkedPlayer).
			Msg("User created")
		return nil
	})
}

func orNewID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
