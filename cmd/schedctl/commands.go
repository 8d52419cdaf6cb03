package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gorilla/websocket"

	scheduleapi "github.com/rosterforge/rosterforge/internal/api/schedule"
	"github.com/rosterforge/rosterforge/internal/board"
	"github.com/rosterforge/rosterforge/internal/grid"
	"github.com/rosterforge/rosterforge/internal/models"
	"github.com/rosterforge/rosterforge/internal/scheduleclient"
)

func runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	server := fs.String("server", "", "Server base URL")
	username := fs.String("username", "", "Login name")
	password := fs.String("password", "", "Password (default: $ROSTERFORGE_PASSWORD)")
	fs.Parse(args)

	if *username == "" {
		return errors.New("-username is required")
	}
	secret := *password
	if secret == "" {
		secret = os.Getenv("ROSTERFORGE_PASSWORD")
	}

	base := *server
	if base == "" {
		base = defaultServer()
	}
	client, err := scheduleclient.New(base)
	if err != nil {
		return err
	}
	login, err := client.Login(ctx, *username, secret)
	if err != nil {
		return err
	}
	if err := saveSession(session{
		Server:    base,
		Token:     login.Token,
		ExpiresAt: login.ExpiresAt,
		Username:  login.User.Username,
		TeamID:    login.User.TeamID,
	}); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s), token valid until %s\n",
		login.User.Username, login.User.Role, login.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// openBoard loads a manager-permission board for team. The server still enforces the
// caller's real role on every write.
func openBoard(ctx context.Context, server, teamID, week string) (*board.Board, error) {
	client, s, err := newClient(server)
	if err != nil {
		return nil, err
	}
	if teamID == "" {
		teamID = s.TeamID
	}
	if teamID == "" {
		return nil, errors.New("-team is required")
	}
	b, err := board.New(client, board.Config{TeamID: teamID, Permission: board.PermissionManager, WeekStart: week})
	if err != nil {
		return nil, err
	}
	if err := b.Load(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func runGrid(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grid", flag.ExitOnError)
	server := fs.String("server", "", "Server base URL")
	teamID := fs.String("team", "", "Team id (default: your team)")
	week := fs.String("week", grid.WeekStart(time.Now()), "Week start (Monday), empty for the recurring view")
	fs.Parse(args)

	b, err := openBoard(ctx, *server, *teamID, *week)
	if err != nil {
		return err
	}
	printGrid(b.Snapshot())
	return nil
}

func printGrid(snap board.Snapshot) {
	title := "every week"
	if snap.WeekStart != "" {
		title = "week of " + snap.WeekStart
	}
	fmt.Printf("%s, %s, %d players reported availability\n\n", snap.TeamID, title, snap.PlayerCount)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := []string{"Time"}
	for d, day := range grid.Days {
		label := day[:3]
		if snap.WeekStart != "" {
			label += " " + grid.DateFor(snap.WeekStart, d)[5:]
		}
		header = append(header, label)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for s, row := range snap.Rows {
		cols := []string{grid.TimeSlots[s]}
		for _, cell := range row {
			cols = append(cols, cellText(cell, snap.PlayerCount))
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	tw.Flush()
}

func cellText(cell board.CellView, players int) string {
	if cell.Activity != nil {
		text := cell.Activity.Title
		if cell.Activity.IsDated() {
			text += "*"
		}
		return text
	}
	if players > 0 {
		return fmt.Sprintf("(%d/%d)", cell.Available, players)
	}
	return "."
}

// parseCell splits "Monday/3:00 PM" into its day and slot labels.
func parseCell(raw string) (string, string, error) {
	day, slot, ok := strings.Cut(raw, "/")
	if !ok {
		return "", "", fmt.Errorf("cell %q must look like Monday/3:00 PM", raw)
	}
	day = strings.TrimSpace(day)
	if day != "" {
		day = strings.ToUpper(day[:1]) + strings.ToLower(day[1:])
	}
	return day, strings.ToUpper(strings.TrimSpace(slot)), nil
}

// drag replays a pointer drag from one cell to another on the board.
func drag(b *board.Board, from, to string) (board.Pending, error) {
	fromDay, fromSlot, err := parseCell(from)
	if err != nil {
		return board.Pending{}, err
	}
	toDay, toSlot, err := parseCell(to)
	if err != nil {
		return board.Pending{}, err
	}
	if !b.PointerDown(fromDay, fromSlot) {
		return board.Pending{}, fmt.Errorf("cannot start a selection at %s", from)
	}
	b.PointerEnter(toDay, toSlot)
	return b.PointerUp(), nil
}

func runPaint(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("paint", flag.ExitOnError)
	server := fs.String("server", "", "Server base URL")
	teamID := fs.String("team", "", "Team id (default: your team)")
	week := fs.String("week", "", "Week start for one-off activities")
	from := fs.String("from", "", "First corner, e.g. Monday/3:00 PM")
	to := fs.String("to", "", "Opposite corner (default: same as -from)")
	typeName := fs.String("type", "", "Activity type")
	title := fs.String("title", "", "Title (default: the type's display name)")
	description := fs.String("description", "", "Description (markdown)")
	oneOff := fs.Bool("one-off", false, "Pin to the dates of -week instead of repeating weekly")
	fs.Parse(args)

	activityType, err := models.ParseActivityType(*typeName)
	if err != nil {
		return err
	}
	if *from == "" {
		return errors.New("-from is required")
	}
	if *to == "" {
		*to = *from
	}
	if *oneOff && *week == "" {
		return errors.New("-one-off needs -week")
	}

	b, err := openBoard(ctx, *server, *teamID, *week)
	if err != nil {
		return err
	}
	if err := b.SetMode(board.ModeCreate); err != nil {
		return err
	}
	if err := b.SelectType(activityType); err != nil {
		return err
	}

	pending, err := drag(b, *from, *to)
	if err != nil {
		return err
	}
	form := pending.Form
	if *title != "" {
		form.Title = *title
	}
	form.Description = *description
	form.OneOff = *oneOff

	switch pending.Kind {
	case board.PendingBulkCreate:
		report, err := b.ConfirmCreate(ctx, form)
		if err != nil {
			return err
		}
		printReport(report)
	case board.PendingSingleCreate:
		activity, err := b.CreateOne(ctx, form)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s on %s at %s\n", activity.Title, grid.Days[activity.DayOfWeek], activity.TimeSlot)
	default:
		return errors.New("nothing to create in that range")
	}
	return nil
}

func runErase(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	server := fs.String("server", "", "Server base URL")
	teamID := fs.String("team", "", "Team id (default: your team)")
	week := fs.String("week", "", "Week start, to reach one-off activities")
	from := fs.String("from", "", "First corner, e.g. Monday/3:00 PM")
	to := fs.String("to", "", "Opposite corner (default: same as -from)")
	fs.Parse(args)

	if *from == "" {
		return errors.New("-from is required")
	}
	if *to == "" {
		*to = *from
	}

	b, err := openBoard(ctx, *server, *teamID, *week)
	if err != nil {
		return err
	}
	if err := b.SetMode(board.ModeDelete); err != nil {
		return err
	}
	pending, err := drag(b, *from, *to)
	if err != nil {
		return err
	}

	switch pending.Kind {
	case board.PendingBulkDelete:
		report, err := b.ConfirmDelete(ctx)
		if err != nil {
			return err
		}
		printReport(report)
	case board.PendingEdit:
		if err := b.Delete(ctx, pending.Activity.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", pending.Activity.Title)
	default:
		return errors.New("nothing to delete in that range")
	}
	return nil
}

func printReport(report board.BatchReport) {
	fmt.Println(report.String())
	for _, failure := range report.Failures {
		fmt.Printf("  %s: %s\n", failure.Key, failure.Reason)
	}
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	server := fs.String("server", "", "Server base URL")
	teamID := fs.String("team", "", "Team id (default: your team)")
	fs.Parse(args)

	client, s, err := newClient(*server)
	if err != nil {
		return err
	}
	team := *teamID
	if team == "" {
		team = s.TeamID
	}
	if team == "" {
		return errors.New("-team is required")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, client.LiveURL(team), client.AuthHeader())
	if err != nil {
		if resp != nil {
			return &scheduleclient.StatusError{Method: "GET", Path: "/api/schedule/live", StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("connect live feed: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	fmt.Printf("Watching %s, Ctrl-C to stop\n", team)
	for {
		var msg scheduleapi.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read live feed: %w", err)
		}
		fmt.Println(describe(msg))
	}
}

func describe(msg scheduleapi.Message) string {
	stamp := time.Now().Format("15:04:05")
	if msg.Activity == nil {
		return fmt.Sprintf("%s %s week=%s", stamp, msg.Type, msg.WeekStart)
	}
	a := msg.Activity
	when := grid.Days[0]
	if a.DayOfWeek >= 0 && a.DayOfWeek < len(grid.Days) {
		when = grid.Days[a.DayOfWeek]
	}
	if a.IsDated() {
		when = a.ActivityDate
	}
	return fmt.Sprintf("%s %s %s %q %s %s", stamp, msg.Type, a.ID, a.Title, when, a.TimeSlot)
}
