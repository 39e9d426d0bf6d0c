package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-client/internal/session"
)

var ErrUsage = errors.New("usage")

const help = `commands:
  create [name]        create a room
  join <room> [name]   join a room
  open <room>          show a room without joining it
  move <0-8>           play a cell
  restart              start a new round
  ping                 check the connection
  quit                 leave`

// Console reads commands line by line and redraws the session on every change.
type Console struct {
	logger     *slog.Logger
	in         io.Reader
	out        io.Writer
	controller *session.Controller
	reconciler *session.Reconciler
	notices    *session.Notices
	playerName string

	outMu sync.Mutex
}

type Deps struct {
	Model      *session.Model
	Controller *session.Controller
	Reconciler *session.Reconciler
	Notices    *session.Notices
	// PlayerName is used when a command names no player.
	PlayerName string
}

func New(logger *slog.Logger, in io.Reader, out io.Writer, deps Deps) *Console {
	console := &Console{
		logger:     logger.With("component", "console"),
		in:         in,
		out:        out,
		controller: deps.Controller,
		reconciler: deps.Reconciler,
		notices:    deps.Notices,
		playerName: deps.PlayerName,
	}

	deps.Model.OnChange(console.Render)
	deps.Notices.OnChange(console.ShowNotice)

	return console
}

// Run - executes commands until quit, end of input or ctx is done.
func (that *Console) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(that.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	that.println(help)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			if err != nil {
				return fmt.Errorf("failed to read commands: %w", err)
			}

			return nil
		case line := <-lines:
			quit, err := that.Execute(ctx, line)
			if errors.Is(err, ErrUsage) {
				that.println(err.Error())
			}

			if quit {
				return nil
			}
		}
	}
}

// Execute - runs one command line. Rejected intents are reported through notices, not returned.
func (that *Console) Execute(ctx context.Context, line string) (bool, error) {
	log := that.logger.With("method", "Execute")

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	command, args := strings.ToLower(fields[0]), fields[1:]

	var err error

	switch command {
	case "create":
		err = that.controller.CreateRoom(that.nameArg(args, 0))
	case "join":
		if len(args) == 0 {
			return false, fmt.Errorf("%w: join <room> [name]", ErrUsage)
		}

		err = that.controller.JoinRoom(args[0], that.nameArg(args, 1))
	case "open":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: open <room>", ErrUsage)
		}

		that.reconciler.Open(ctx, args[0], nil)
	case "move":
		index, convErr := moveArg(args)
		if convErr != nil {
			return false, convErr
		}

		err = that.controller.Move(index)
	case "restart":
		err = that.controller.Restart()
	case "ping":
		err = that.controller.Ping()
	case "help":
		that.println(help)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("%w: unknown command %q, try help", ErrUsage, command)
	}

	if err != nil {
		log.Debug("command rejected", "command", command, "error", err)
	}

	return false, err
}

// Render - draws the board and the status line, followed by the notice still on screen.
func (that *Console) Render(view session.View) {
	text := Format(view)

	if notice, ok := that.notices.Current(); ok {
		text += "\n! " + notice.Text
	}

	that.println(text)
}

func (that *Console) ShowNotice(notice *session.Notice) {
	if notice == nil {
		return
	}

	that.println("! " + notice.Text)
}

// Format - text rendering of a session view. Cells of a completed line are starred.
func Format(view session.View) string {
	var b strings.Builder

	room := view.RoomID
	if room == "" {
		room = "-"
	}

	you := string(view.Assignment)
	if you == "" {
		you = "?"
	}

	fmt.Fprintf(&b, "room %s | you: %s | %s", room, you, view.Label())

	if view.Pending {
		b.WriteString(" | pending…")
	}

	if !view.Connected {
		b.WriteString(" | offline")
	}

	if view.State == nil {
		return b.String()
	}

	winning := map[int]bool{}
	if line, ok := view.State.WinningLine(); ok {
		for _, index := range line {
			winning[index] = true
		}
	}

	players := view.State.Players()
	fmt.Fprintf(&b, "\n%s (%s) vs %s (%s)", players[0].Name, players[0].Mark, players[1].Name, players[1].Mark)

	for row := 0; row < 3; row++ {
		if row > 0 {
			b.WriteString("\n---+---+---")
		}

		b.WriteString("\n")

		for col := 0; col < 3; col++ {
			index := row*3 + col

			cell := string(view.State.Board[index])
			if cell == "" {
				cell = strconv.Itoa(index)
			}

			if col > 0 {
				b.WriteString("|")
			}

			if winning[index] {
				b.WriteString("*" + cell + "*")
			} else {
				b.WriteString(" " + cell + " ")
			}
		}
	}

	return b.String()
}

func (that *Console) nameArg(args []string, at int) string {
	if len(args) > at {
		return strings.Join(args[at:], " ")
	}

	return that.playerName
}

func moveArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: move <0-8>", ErrUsage)
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: move <0-8>, got %q", ErrUsage, args[0])
	}

	return index, nil
}

func (that *Console) println(text string) {
	that.outMu.Lock()
	defer that.outMu.Unlock()

	if _, err := fmt.Fprintln(that.out, text); err != nil {
		that.logger.Debug("failed to write output", "error", err)
	}
}
