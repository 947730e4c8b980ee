package web

import (
    "bytes"
    "html/template"
    "net/http"

    "github.com/google/uuid"
    "github.com/jaminalder/tic-tac-toe-solver/internal/app"
    "github.com/jaminalder/tic-tac-toe-solver/internal/domain"
    "github.com/jaminalder/tic-tac-toe-solver/internal/search"
)

type templates struct {
    base  *template.Template
    game  *template.Template
    board *template.Template
    index *template.Template
}

func funcs() template.FuncMap {
    return template.FuncMap{
        "iter": func(n int) []int { a := make([]int, n); for i := range a { a[i] = i }; return a },
        "add":  func(a, b int) int { return a + b },
        "mul":  func(a, b int) int { return a * b },
    }
}

func loadTemplates() *templates {
    base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
    // Define the board template within the same set so game can include it
    template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
    index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
    game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>`))
    // Standalone board template used for fragment rendering
    board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
    return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
    var buf bytes.Buffer
    if name == "" {
        _ = t.Execute(&buf, data)
    } else {
        _ = t.ExecuteTemplate(&buf, name, data)
    }
    return buf.Bytes()
}

const indexTemplate = `<h1>TicTacToe</h1>
<form action="/game" method="post">
  {{range $seat := .Seats}}
  <label>{{$seat}}
    <select name="{{$seat}}">
      {{range $.Kinds}}<option value="{{.}}"{{if eq . (index $.Defaults $seat)}} selected{{end}}>{{.}}</option>{{end}}
    </select>
  </label>
  {{end}}
  <button>Create</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}
      {{with index $.Cells (add (mul $r 3) $c)}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="cell" value="{{.Index}}">
        <button type="submit"{{if not .Open}} disabled{{end}}>{{.Label}}</button>
      </form>
      {{end}}
    {{end}}
  </div>
  {{end}}
  {{if .Over}}
  <form hx-post="/game/{{.ID}}/rematch" hx-target="#board" hx-swap="outerHTML" method="post">
    <button type="submit">Rematch</button>
  </form>
  {{end}}
</div>
`

type cellView struct {
    Index int
    Label string
    Open  bool
}

// boardView is the data rendered by the board template.
type boardView struct {
    ID     string
    Cells  []cellView
    Status string
    Over   bool
    Error  string
}

func newBoardView(gs app.GameState, errMsg string) boardView {
    v := boardView{ID: gs.ID, Error: errMsg, Over: gs.Game.Over, Status: status(gs)}
    for i := 1; i <= 9; i++ {
        c, _ := gs.Game.Board.Cell(i)
        v.Cells = append(v.Cells, cellView{Index: i, Label: gs.Game.Board.Label(i), Open: c == domain.Open && !gs.Game.Over})
    }
    return v
}

func status(gs app.GameState) string {
    switch {
    case gs.Game.Over && gs.Game.Winner != domain.Open:
        return "Player " + gs.Game.Winner.String() + " wins!"
    case gs.Game.Over:
        return "Draw!"
    }
    return "Player " + gs.Game.Turn.String() + " (" + gs.Kind(gs.Game.Turn).String() + ") to move"
}

type indexView struct {
    Seats    []string
    Kinds    []search.Kind
    Defaults map[string]search.Kind
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
    if v := playerFromCookie(r); v != "" {
        return v
    }
    // Generate UUIDv4 for player ID
    v := uuid.NewString()
    http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
    return v
}

// playerFromCookie returns the player ID if the request carries a valid one.
func playerFromCookie(r *http.Request) string {
    c, err := r.Cookie("player_id")
    if err != nil || !isValidPlayerID(c.Value) {
        return ""
    }
    return c.Value
}

func isValidPlayerID(playerID string) bool {
    _, err := uuid.Parse(playerID)
    return err == nil
}
