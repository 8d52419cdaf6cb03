package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rosterforge/rosterforge/internal/api/authz"
	"github.com/rosterforge/rosterforge/internal/models"
	sched "github.com/rosterforge/rosterforge/internal/schedule"
)

func startLiveServer(t *testing.T, user *authz.AuthUser) *httptest.Server {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleLive(w, withUser(r, user))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialLive(t *testing.T, srv *httptest.Server, teamID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/schedule/live?team_id=" + teamID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial: %v (status %d)", err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, teamID string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount(teamID) == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d live clients for %s, have %d", n, teamID, hub.ClientCount(teamID))
}

func TestLiveFeedBroadcastsTeamChanges(t *testing.T) {
	s := setupScheduleTest(t)
	srv := startLiveServer(t, adminUser)

	conn := dialLive(t, srv, "team-a")
	waitForClients(t, "team-a", 1)

	if _, err := s.CreateActivity(context.Background(), models.ActivityInput{
		TeamID: "team-b", Type: models.ActivityPractice, Title: "Other team", DayOfWeek: 1, TimeSlot: "1:00 PM", Duration: 1,
	}); err != nil {
		t.Fatalf("create team-b: %v", err)
	}
	created, err := s.CreateActivity(context.Background(), models.ActivityInput{
		TeamID: "team-a", Type: models.ActivityPractice, Title: "Practice", DayOfWeek: 0, TimeSlot: "3:00 PM", Duration: 1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "activity.created" || msg.TeamID != "team-a" || msg.Activity == nil || msg.Activity.ID != created.ID {
		t.Fatalf("message: %s", data)
	}

	if err := s.DeleteActivity(context.Background(), created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("read delete: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode delete: %v", err)
	}
	if msg.Type != "activity.deleted" || msg.Activity == nil || msg.Activity.ID != created.ID {
		t.Fatalf("delete message: %s", data)
	}
}

func TestLiveFeedRequiresTeamAccess(t *testing.T) {
	setupScheduleTest(t)
	srv := startLiveServer(t, managerUser)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/schedule/live?team_id=team-b"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func TestUpgraderChecksOrigin(t *testing.T) {
	u := newUpgrader([]string{"https://board.example.com/"})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/api/schedule/live", nil)
	if !u.CheckOrigin(req) {
		t.Fatalf("missing origin should be allowed")
	}
	req.Header.Set("Origin", "http://api.example.com")
	if !u.CheckOrigin(req) {
		t.Fatalf("same host should be allowed")
	}
	req.Header.Set("Origin", "https://board.example.com")
	if !u.CheckOrigin(req) {
		t.Fatalf("listed origin should be allowed")
	}
	req.Header.Set("Origin", "https://evil.example.net")
	if u.CheckOrigin(req) {
		t.Fatalf("foreign origin allowed")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastSize*2; i++ {
			h.Publish(sched.Event{Kind: sched.EventCreated, TeamID: "team-a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked without a running hub")
	}
}
