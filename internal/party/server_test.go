package party

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"game-night/internal/config"
)

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func createParty(t *testing.T, ts *httptest.Server, kind, creatorID string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"id": creatorID, "name": "Creator"})
	resp, err := http.Post(ts.URL+"/game/"+kind+"/create-party", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create party status = %d", resp.StatusCode)
	}
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	return out["partyCode"]
}

func dialParty(t *testing.T, ts *httptest.Server, kind, code string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + kind + "/party/" + code
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write websocket message: %v", err)
	}
}

// readUpdateState reads messages until an update_state satisfies want,
// skipping pings and intermediate broadcasts. An error action fails the test.
func readUpdateState(t *testing.T, conn *websocket.Conn, want func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read websocket message: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("decode websocket message: %v", err)
		}
		switch payload["action"] {
		case actionPing:
			continue
		case actionError:
			t.Fatalf("unexpected error message: %v", payload)
		case actionUpdateState:
			if want == nil || want(payload) {
				return payload
			}
		}
	}
	t.Fatal("no matching update_state before deadline")
	return nil
}

func readErrorReason(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read websocket message: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("decode websocket message: %v", err)
		}
		if payload["action"] == actionError {
			reason, _ := payload["reason"].(string)
			return reason
		}
	}
}

func register(t *testing.T, conn *websocket.Conn, id, name string) {
	t.Helper()
	wsSend(t, conn, map[string]any{"action": actionRegister, "id": id, "name": name})
}

func playerEntries(t *testing.T, payload map[string]any) []map[string]any {
	t.Helper()
	raw, ok := payload["players"].([]any)
	if !ok {
		t.Fatalf("payload has no players list: %v", payload)
	}
	entries := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		entries = append(entries, e.(map[string]any))
	}
	return entries
}

func TestCreatePartyUnknownGameKind(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/game/chess/create-party", "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreatePartyCodeShape(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	codePattern := regexp.MustCompile(`^\d{4}$`)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		code := createParty(t, ts, "avalon", "host")
		if !codePattern.MatchString(code) {
			t.Fatalf("party code %q is not 4 digits", code)
		}
		if seen[code] {
			t.Fatalf("duplicate party code %q", code)
		}
		seen[code] = true
	}
}

func TestJoinUnknownParty(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	conn := dialParty(t, ts, "avalon", "0000")
	defer conn.Close()
	if reason := readErrorReason(t, conn); reason != ReasonPartyNotFound {
		t.Fatalf("reason = %q, want %q", reason, ReasonPartyNotFound)
	}
}

func TestRegisterRosterAndHost(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "host")
	hostConn := dialParty(t, ts, "avalon", code)
	defer hostConn.Close()
	register(t, hostConn, "host", "Ada")

	payload := readUpdateState(t, hostConn, nil)
	if payload["partyCode"] != code || payload["gameId"] != "avalon" {
		t.Fatalf("payload identity = %v/%v", payload["gameId"], payload["partyCode"])
	}
	if payload["hostId"] != "host" {
		t.Fatalf("hostId = %v, want the party creator", payload["hostId"])
	}
	if payload["gameStarted"] != false {
		t.Fatal("fresh party reports started")
	}

	guestConn := dialParty(t, ts, "avalon", code)
	defer guestConn.Close()
	register(t, guestConn, "p2", "Ben")

	payload = readUpdateState(t, guestConn, func(p map[string]any) bool {
		return len(p["players"].([]any)) == 2
	})
	entries := playerEntries(t, payload)
	for _, entry := range entries {
		if entry["connected"] != true {
			t.Fatalf("player %v not connected in roster", entry["id"])
		}
	}
	if payload["hostId"] != "host" {
		t.Fatalf("hostId changed to %v after a guest joined", payload["hostId"])
	}
}

func TestCreatorIsPreferredHost(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "owner")

	// A guest beats the creator to the room and holds the host seat only
	// until the creator shows up.
	guestConn := dialParty(t, ts, "avalon", code)
	defer guestConn.Close()
	register(t, guestConn, "p2", "Ben")
	payload := readUpdateState(t, guestConn, nil)
	if payload["hostId"] != "p2" {
		t.Fatalf("hostId = %v with the creator absent, want the connected guest", payload["hostId"])
	}

	ownerConn := dialParty(t, ts, "avalon", code)
	defer ownerConn.Close()
	register(t, ownerConn, "owner", "Ada")
	payload = readUpdateState(t, ownerConn, func(p map[string]any) bool {
		return p["hostId"] == "owner"
	})
	if payload["hostId"] != "owner" {
		t.Fatalf("hostId = %v, want the party creator once connected", payload["hostId"])
	}
}

func TestPartyCodeAllocationConcurrent(t *testing.T) {
	srv := New(nil, config.Default())
	codePattern := regexp.MustCompile(`^\d{4}$`)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := srv.newPartyCode("avalon")
			if err != nil {
				errs <- err
				return
			}
			if !codePattern.MatchString(code) {
				errs <- fmt.Errorf("bad party code %q", code)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent allocation: %v", err)
	}
}

// startAvalonParty registers five players and starts the game, returning the
// connections keyed by player id.
func startAvalonParty(t *testing.T, ts *httptest.Server, code string) map[string]*websocket.Conn {
	t.Helper()
	ids := []string{"host", "p2", "p3", "p4", "p5"}
	conns := make(map[string]*websocket.Conn, len(ids))
	for _, id := range ids {
		conn := dialParty(t, ts, "avalon", code)
		t.Cleanup(func() { conn.Close() })
		register(t, conn, id, "Player "+id)
		conns[id] = conn
	}
	// Wait until the host sees the full roster before starting.
	readUpdateState(t, conns["host"], func(p map[string]any) bool {
		return len(p["players"].([]any)) == 5
	})
	wsSend(t, conns["host"], map[string]any{"action": actionStartGame})
	return conns
}

func started(p map[string]any) bool {
	return p["gameStarted"] == true
}

func TestAvalonStartBroadcastsPerPlayerRoles(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "host")
	conns := startAvalonParty(t, ts, code)

	for id, conn := range conns {
		payload := readUpdateState(t, conn, started)
		state, ok := payload["state"].(map[string]any)
		if !ok {
			t.Fatalf("player %s: no state in started payload", id)
		}
		if state["phase"] != "quest" || state["questNumber"] != float64(1) {
			t.Fatalf("player %s: state = %v/%v", id, state["phase"], state["questNumber"])
		}
		// With no special characters selected every role is a servant or
		// minion, and neither sees anyone else: exactly the viewer's own
		// entry carries a role.
		withRole := 0
		for _, entry := range playerEntries(t, payload) {
			if role, ok := entry["specialId"]; ok {
				withRole++
				if entry["id"] != id {
					t.Fatalf("player %s sees role %v of player %v", id, role, entry["id"])
				}
			}
		}
		if withRole != 1 {
			t.Fatalf("player %s sees %d roles, want only their own", id, withRole)
		}
	}
}

func TestLateJoinAfterStartRejected(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "host")
	conns := startAvalonParty(t, ts, code)
	readUpdateState(t, conns["host"], started)

	lateConn := dialParty(t, ts, "avalon", code)
	defer lateConn.Close()
	register(t, lateConn, "latecomer", "Zed")
	if reason := readErrorReason(t, lateConn); reason != ReasonGameStarted {
		t.Fatalf("reason = %q, want %q", reason, ReasonGameStarted)
	}
}

func TestReconnectKeepsSeatAndRole(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "host")
	conns := startAvalonParty(t, ts, code)
	payload := readUpdateState(t, conns["p2"], started)
	var roleBefore any
	for _, entry := range playerEntries(t, payload) {
		if entry["id"] == "p2" {
			roleBefore = entry["specialId"]
		}
	}

	conns["p2"].Close()
	time.Sleep(100 * time.Millisecond)

	reconn := dialParty(t, ts, "avalon", code)
	defer reconn.Close()
	register(t, reconn, "p2", "Player p2")
	payload = readUpdateState(t, reconn, started)
	if len(playerEntries(t, payload)) != 5 {
		t.Fatal("roster changed across a mid-game reconnect")
	}
	for _, entry := range playerEntries(t, payload) {
		if entry["id"] == "p2" {
			if entry["specialId"] != roleBefore {
				t.Fatalf("role changed across reconnect: %v -> %v", roleBefore, entry["specialId"])
			}
			if entry["connected"] != true {
				t.Fatal("reconnected player not marked connected")
			}
		}
	}
}

func TestSnapshotRestoreAfterRoomLoss(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "host")
	conns := startAvalonParty(t, ts, code)
	readUpdateState(t, conns["host"], started)

	// Drop the live room; the snapshot tier must revive it on the next join.
	for _, conn := range conns {
		conn.Close()
	}
	srv.rooms.Delete(PartyID("avalon", code))
	time.Sleep(100 * time.Millisecond)

	reconn := dialParty(t, ts, "avalon", code)
	defer reconn.Close()
	register(t, reconn, "host", "Player host")
	payload := readUpdateState(t, reconn, started)
	if len(playerEntries(t, payload)) != 5 {
		t.Fatalf("restored roster has %d players, want 5", len(playerEntries(t, payload)))
	}
}

func TestConnectionReplacedByNewSession(t *testing.T) {
	srv := New(nil, config.Default())
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(ts.Close)

	code := createParty(t, ts, "avalon", "host")
	first := dialParty(t, ts, "avalon", code)
	defer first.Close()
	wsSend(t, first, map[string]any{"action": actionRegister, "id": "host", "name": "Ada", "sessionTag": "tab-1"})
	readUpdateState(t, first, nil)

	second := dialParty(t, ts, "avalon", code)
	defer second.Close()
	wsSend(t, second, map[string]any{"action": actionRegister, "id": "host", "name": "Ada", "sessionTag": "tab-2"})
	readUpdateState(t, second, nil)

	if reason := readErrorReason(t, first); reason != ReasonConnectionReplaced {
		t.Fatalf("reason = %q, want %q", reason, ReasonConnectionReplaced)
	}
}
