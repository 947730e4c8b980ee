package web

import (
    "bufio"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/gorilla/websocket"
    "github.com/jaminalder/tic-tac-toe-solver/internal/app"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
    "go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
    t.Helper()
    log := zaptest.NewLogger(t)
    s := app.NewService(app.WithLogger(log))
    h := NewServer(s, WithLogger(log))
    return s, h
}

func postForm(t *testing.T, h http.Handler, path string, form url.Values, playerID string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    if playerID != "" {
        req.AddCookie(&http.Cookie{Name: "player_id", Value: playerID})
    }
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    return rr
}

func postMove(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
    t.Helper()
    req := httptest.NewRequest("POST", "/api/move", strings.NewReader(body))
    req.Header.Set("Content-Type", "application/json")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    return rr
}

func TestIndexPage(t *testing.T) {
    _, h := newTestServer(t)
    req := httptest.NewRequest("GET", "/", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    body := rr.Body.String()
    if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
        t.Fatalf("index should contain create form; got body: %q", body)
    }
    for _, k := range search.Kinds() {
        if !strings.Contains(body, ">"+k.String()+"<") {
            t.Fatalf("index should offer kind %q; got body: %q", k, body)
        }
    }
}

func TestCreateRedirectsToGame(t *testing.T) {
    svc, h := newTestServer(t)
    rr := postForm(t, h, "/game", url.Values{"x": {"human"}, "o": {"optimal"}}, "")
    if rr.Code != http.StatusSeeOther {
        t.Fatalf("expected redirect, got %d", rr.Code)
    }
    loc := rr.Result().Header.Get("Location")
    if !strings.HasPrefix(loc, "/game/") {
        t.Fatalf("expected redirect to /game/{id}, got %q", loc)
    }
    gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
    if !ok {
        t.Fatalf("redirected to unknown game %q", loc)
    }
    if gs.XKind != search.Human || gs.OKind != search.Optimal {
        t.Fatalf("kinds = %v/%v, want human/optimal", gs.XKind, gs.OKind)
    }
}

func TestCreateUsesDefaultKinds(t *testing.T) {
    svc := app.NewService()
    h := NewServer(svc, WithDefaultKinds(search.Optimal, search.Human))

    index := httptest.NewRecorder()
    h.ServeHTTP(index, httptest.NewRequest("GET", "/", nil))
    if !strings.Contains(index.Body.String(), `value="optimal" selected`) {
        t.Fatalf("expected optimal preselected, got %q", index.Body.String())
    }

    rr := postForm(t, h, "/game", url.Values{}, "")
    loc := rr.Result().Header.Get("Location")
    gs, ok := svc.Get(strings.TrimPrefix(loc, "/game/"))
    if !ok {
        t.Fatalf("redirected to unknown game %q", loc)
    }
    if gs.XKind != search.Optimal || gs.OKind != search.Human {
        t.Fatalf("kinds = %v/%v, want optimal/human", gs.XKind, gs.OKind)
    }
    if gs.Game.Moves != 1 {
        t.Fatalf("expected the X bot to open, moves=%d", gs.Game.Moves)
    }
}

func TestCreateRejectsUnknownKind(t *testing.T) {
    _, h := newTestServer(t)
    rr := postForm(t, h, "/game", url.Values{"x": {"grandmaster"}}, "")
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)

    req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    var playerID string
    for _, c := range rr.Result().Cookies() {
        if c.Name == "player_id" {
            playerID = c.Value
            break
        }
    }
    if !isValidPlayerID(playerID) {
        t.Fatalf("expected a UUID player_id cookie, got %q", playerID)
    }
    latest, ok := svc.Get(gs.ID)
    if !ok || latest.X != playerID {
        t.Fatalf("expected auto-claim of X; have X=%q O=%q pid=%q", latest.X, latest.O, playerID)
    }
    body := rr.Body.String()
    if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
        t.Fatalf("expected SSE wiring in page; got body: %q", body)
    }
}

func TestGamePageUnknownGame(t *testing.T) {
    _, h := newTestServer(t)
    req := httptest.NewRequest("GET", "/game/missing", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rr.Code)
    }
}

func TestInvalidCookieIsReplaced(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)
    req := httptest.NewRequest("GET", "/game/"+gs.ID, nil)
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p2"})
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    latest, _ := svc.Get(gs.ID)
    if latest.X == "p2" || !isValidPlayerID(latest.X) {
        t.Fatalf("expected fresh UUID seat, got X=%q", latest.X)
    }
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)
    p1, p2 := uuid.NewString(), uuid.NewString()
    _, _, _ = svc.Join(gs.ID, p1)

    rr := postForm(t, h, "/game/"+gs.ID+"/join", url.Values{}, p2)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if !strings.Contains(rr.Body.String(), "id=\"board\"") {
        t.Fatalf("expected board fragment, got %q", rr.Body.String())
    }
    latest, _ := svc.Get(gs.ID)
    if latest.O != p2 {
        t.Fatalf("expected O for p2, got X=%q O=%q", latest.X, latest.O)
    }
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)
    p1, p2 := uuid.NewString(), uuid.NewString()
    _, _, _ = svc.Join(gs.ID, p1)
    _, _, _ = svc.Join(gs.ID, p2)

    rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {"1"}}, p1)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    body := rr.Body.String()
    if !strings.Contains(body, "id=\"board\"") {
        t.Fatalf("expected board fragment, got %q", body)
    }
    if !strings.Contains(body, "Player O (human) to move") {
        t.Fatalf("expected O to move, got %q", body)
    }
    latest, _ := svc.Get(gs.ID)
    if latest.Game.Moves != 1 {
        t.Fatalf("expected move applied, moves=%d", latest.Game.Moves)
    }
}

func TestPlayEndpointShowsErrors(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)
    p1, p2 := uuid.NewString(), uuid.NewString()
    _, _, _ = svc.Join(gs.ID, p1)
    _, _, _ = svc.Join(gs.ID, p2)

    cases := []struct {
        name string
        pid  string
        cell string
        want string
    }{
        {"wrong turn", p2, "1", "Not your turn"},
        {"spectator", uuid.NewString(), "1", "You are a spectator"},
        {"out of range", p1, "10", "Pick a cell between 1 and 9"},
        {"malformed", p1, "abc", "Pick a cell between 1 and 9"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {tc.cell}}, tc.pid)
            if rr.Code != http.StatusOK {
                t.Fatalf("expected 200, got %d", rr.Code)
            }
            if !strings.Contains(rr.Body.String(), tc.want) {
                t.Fatalf("expected %q in body, got %q", tc.want, rr.Body.String())
            }
        })
    }
    latest, _ := svc.Get(gs.ID)
    if latest.Game.Moves != 0 {
        t.Fatalf("rejected moves must not change the board, moves=%d", latest.Game.Moves)
    }
}

func TestPlayAgainstBot(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Optimal)
    p1 := uuid.NewString()
    _, _, _ = svc.Join(gs.ID, p1)

    rr := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {"1"}}, p1)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    latest, _ := svc.Get(gs.ID)
    if latest.Game.Moves != 2 {
        t.Fatalf("expected bot reply, moves=%d", latest.Game.Moves)
    }
    if !strings.Contains(rr.Body.String(), "Player X (human) to move") {
        t.Fatalf("expected X to move after bot reply, got %q", rr.Body.String())
    }
}

func TestRematchEndpoint(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)
    p1, p2 := uuid.NewString(), uuid.NewString()
    _, _, _ = svc.Join(gs.ID, p1)
    _, _, _ = svc.Join(gs.ID, p2)
    early := postForm(t, h, "/game/"+gs.ID+"/rematch", url.Values{}, p1)
    if !strings.Contains(early.Body.String(), "Finish this game first") {
        t.Fatalf("expected live game to refuse rematch, got %q", early.Body.String())
    }
    for i, pid := range []string{p1, p2, p1, p2, p1} {
        if _, err := svc.Play(gs.ID, pid, []int{1, 4, 2, 5, 3}[i]); err != nil {
            t.Fatalf("move %d: %v", i, err)
        }
    }
    over, _ := svc.Get(gs.ID)
    if !over.Game.Over {
        t.Fatalf("expected game over")
    }
    late := postForm(t, h, "/game/"+gs.ID+"/play", url.Values{"cell": {"9"}}, p2)
    if !strings.Contains(late.Body.String(), "Game is over") {
        t.Fatalf("expected game over notice, got %q", late.Body.String())
    }
    if after, _ := svc.Get(gs.ID); after.Game.Moves != 5 {
        t.Fatalf("finished board must not change, moves=%d", after.Game.Moves)
    }
    page := httptest.NewRecorder()
    h.ServeHTTP(page, httptest.NewRequest("GET", "/game/"+gs.ID, nil))
    if !strings.Contains(page.Body.String(), "Player X wins!") || !strings.Contains(page.Body.String(), "/rematch") {
        t.Fatalf("expected win status and rematch form, got %q", page.Body.String())
    }

    rr := postForm(t, h, "/game/"+gs.ID+"/rematch", url.Values{}, p2)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    latest, _ := svc.Get(gs.ID)
    if latest.Game.Over || latest.Game.Moves != 0 {
        t.Fatalf("expected fresh game, over=%v moves=%d", latest.Game.Over, latest.Game.Moves)
    }
}

func TestEventsRequiresEventStream(t *testing.T) {
    _, h := newTestServer(t)
    rrCreate := postForm(t, h, "/game", url.Values{}, "")
    loc := rrCreate.Result().Header.Get("Location")
    if loc == "" {
        t.Fatalf("missing redirect location")
    }
    req := httptest.NewRequest("GET", loc+"/events", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusNotAcceptable {
        t.Fatalf("expected 406, got %d", rr.Code)
    }
}

func TestEventsEndpointUnknownGame(t *testing.T) {
    _, h := newTestServer(t)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest("GET", "/game/missing/events", nil))
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rr.Code)
    }
}

func TestEventsStreamBoardUpdates(t *testing.T) {
    svc, h := newTestServer(t)
    ts := httptest.NewServer(h)
    defer ts.Close()
    gs, _ := svc.CreateGame(search.Human, search.Human)
    p1 := uuid.NewString()
    _, _, _ = svc.Join(gs.ID, p1)

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/game/"+gs.ID+"/events", nil)
    req.Header.Set("Accept", "text/event-stream")
    resp, err := http.DefaultClient.Do(req)
    if err != nil {
        t.Fatalf("events request: %v", err)
    }
    defer resp.Body.Close()
    if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
        t.Fatalf("expected text/event-stream, got %q", ct)
    }

    if _, err := svc.Play(gs.ID, p1, 5); err != nil {
        t.Fatalf("play: %v", err)
    }

    sc := bufio.NewScanner(resp.Body)
    var sawEvent, sawBoard bool
    for sc.Scan() {
        line := sc.Text()
        if line == "event: board" {
            sawEvent = true
        }
        if sawEvent && strings.HasPrefix(line, "data: ") && strings.Contains(line, "id=\"board\"") {
            sawBoard = true
        }
        if sawEvent && line == "" {
            break
        }
        if !sawEvent && line != "" && !strings.HasPrefix(line, ":") {
            t.Fatalf("unexpected line before event: %q", line)
        }
    }
    if !sawEvent || !sawBoard {
        t.Fatalf("expected a board event, event=%v board=%v err=%v", sawEvent, sawBoard, sc.Err())
    }
}

type wsEnvelope struct {
    Type     string          `json:"type"`
    Contents json.RawMessage `json:"contents"`
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
    t.Helper()
    _ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
    for {
        var env wsEnvelope
        if err := conn.ReadJSON(&env); err != nil {
            t.Fatalf("read %s: %v", typ, err)
        }
        if env.Type == typ {
            return env.Contents
        }
    }
}

func TestSocketPlaysAgainstBot(t *testing.T) {
    // hijacked connections outlive the test, so nothing may log through t
    svc := app.NewService()
    h := NewServer(svc)
    ts := httptest.NewServer(h)
    defer ts.Close()
    gs, _ := svc.CreateGame(search.Human, search.Optimal)

    pid := uuid.NewString()
    wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + gs.ID + "/ws"
    conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Cookie": {"player_id=" + pid}})
    if err != nil {
        t.Fatalf("dial: %v", err)
    }
    defer conn.Close()

    var state GameStateBroadcast
    if err := json.Unmarshal(readUntil(t, conn, "GameStateBroadcast"), &state); err != nil {
        t.Fatalf("decode state: %v", err)
    }
    if state.You != "X" || state.Moves != 0 || state.Board != "123456789" {
        t.Fatalf("unexpected initial state %+v", state)
    }

    move := map[string]interface{}{"type": "MakeMoveRequest", "contents": map[string]interface{}{"cell": 1}}
    if err := conn.WriteJSON(move); err != nil {
        t.Fatalf("write: %v", err)
    }
    if err := json.Unmarshal(readUntil(t, conn, "GameStateBroadcast"), &state); err != nil {
        t.Fatalf("decode state: %v", err)
    }
    if state.Moves != 2 || state.Board != "X234O6789" || state.Turn != "X" {
        t.Fatalf("expected bot to answer in the centre, got %+v", state)
    }

    if err := conn.WriteJSON(move); err != nil {
        t.Fatalf("write: %v", err)
    }
    var resp ErrorResponse
    if err := json.Unmarshal(readUntil(t, conn, "ErrorResponse"), &resp); err != nil {
        t.Fatalf("decode error: %v", err)
    }
    if resp.Reason != "Cell is occupied" {
        t.Fatalf("reason = %q", resp.Reason)
    }
}

func TestSocketRequiresCookie(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(search.Human, search.Human)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest("GET", "/game/"+gs.ID+"/ws", nil))
    if rr.Code != http.StatusUnauthorized {
        t.Fatalf("expected 401, got %d", rr.Code)
    }
}

func TestAPIMove(t *testing.T) {
    _, h := newTestServer(t)

    rr := postMove(t, h, `{"board":"123456789","kind":"optimal"}`)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
    }
    var resp moveResponse
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if resp.Cell != 1 || resp.Score != 0 || resp.StateKey != "000000000" {
        t.Fatalf("unexpected response %+v", resp)
    }

    rr = postMove(t, h, `{"board":"OO3X56X89","p1_turn":true,"kind":"block"}`)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
    }
    if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
        t.Fatalf("decode: %v", err)
    }
    if resp.Cell != 3 {
        t.Fatalf("expected block at 3, got %d", resp.Cell)
    }
}

func TestAPIMoveRejects(t *testing.T) {
    _, h := newTestServer(t)
    cases := []struct {
        name string
        body string
        code int
    }{
        {"bad json", `{"board":`, http.StatusBadRequest},
        {"short board", `{"board":"12345","kind":"random"}`, http.StatusBadRequest},
        {"unknown kind", `{"board":"123456789","kind":"nope"}`, http.StatusBadRequest},
        {"human kind", `{"board":"123456789","kind":"human"}`, http.StatusBadRequest},
        {"impossible counts", `{"board":"OO3456789","kind":"block"}`, http.StatusBadRequest},
        {"wrong mover", `{"board":"123456789","p1_turn":false,"kind":"optimal"}`, http.StatusBadRequest},
        {"already won", `{"board":"XXXOO6789","kind":"optimal"}`, http.StatusConflict},
        {"full", `{"board":"XOXXOOOXX","kind":"random"}`, http.StatusConflict},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rr := postMove(t, h, tc.body)
            if rr.Code != tc.code {
                t.Fatalf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body.String())
            }
            var resp ErrorResponse
            if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Reason == "" {
                t.Fatalf("expected error body, got %q (%v)", rr.Body.String(), err)
            }
        })
    }
}
