package boardcmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/conseilapp/conseil/pkg/board"
	"github.com/conseilapp/conseil/pkg/stream"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

var (
	boardTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	boardNameStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	boardDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	boardBodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	boardMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boardErrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

type streamEventMsg struct {
	ev *stream.Event
}

type streamDoneMsg struct {
	err error
}

type boardModel struct {
	question   string
	stream     *stream.Stream
	transcript *board.Transcript
	spin       spinner.Model
	width      int
	done       bool
	err        error
}

// runBoardTUI renders the deliberation as live advisor panels. The program
// shares the command's context, so Ctrl+C cancels the underlying stream
// and the panels settle on whatever had arrived.
func runBoardTUI(ctx context.Context, s *stream.Stream, question string) (*board.Transcript, error) {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	model := boardModel{
		question:   question,
		stream:     s,
		transcript: board.NewTranscript(),
		spin:       spin,
		width:      80,
	}

	program := bubbletea.NewProgram(model, bubbletea.WithContext(ctx))

	final, err := program.Run()
	if err != nil {
		// A canceled context is the Ctrl+C path, not a failure.
		if ctx.Err() != nil {
			return model.transcript, nil
		}
		return model.transcript, err
	}

	m, ok := final.(boardModel)
	if !ok {
		return model.transcript, fmt.Errorf("unexpected final model type %T", final)
	}
	return m.transcript, m.err
}

// nextEvent pulls one event off the stream. Pull pacing doubles as
// backpressure: the backend connection advances only as fast as the UI
// consumes events.
func nextEvent(s *stream.Stream) bubbletea.Cmd {
	return func() bubbletea.Msg {
		ev, err := s.Next()
		if err != nil {
			return streamDoneMsg{err: err}
		}
		if ev == nil {
			return streamDoneMsg{}
		}
		return streamEventMsg{ev: ev}
	}
}

func (m boardModel) Init() bubbletea.Cmd {
	return bubbletea.Batch(m.spin.Tick, nextEvent(m.stream))
}

func (m boardModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case bubbletea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.stream.Close()
			m.done = true
			return m, bubbletea.Quit
		}
		return m, nil

	case streamEventMsg:
		m.transcript.Apply(msg.ev)
		return m, nextEvent(m.stream)

	case streamDoneMsg:
		m.done = true
		m.err = msg.err
		return m, bubbletea.Quit

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m boardModel) View() string {
	var b strings.Builder

	width := max(m.width-4, 40)
	body := boardBodyStyle.Width(width)

	b.WriteString("\n  " + boardTitleStyle.Render(m.question) + "\n")

	for _, p := range m.transcript.Panels() {
		b.WriteString("\n  " + panelHeader(p) + "\n")
		if text := p.Text(); text != "" {
			b.WriteString("  " + body.Render(text) + "\n")
		}
		if !p.Done && !m.done {
			b.WriteString("  " + m.spin.View() + boardMutedStyle.Render(" en cours") + "\n")
		}
	}

	if synthesis := m.transcript.Synthesis(); synthesis != "" {
		b.WriteString("\n  " + boardNameStyle.Render("⚖️ Synthèse") + boardDividerStyle.Render(" ──") + "\n")
		b.WriteString("  " + body.Render(synthesis) + "\n")
	}

	if m.transcript.ErrMessage != "" {
		b.WriteString("\n  " + boardErrStyle.Render(m.transcript.ErrMessage) + "\n")
	}

	if len(m.transcript.Panels()) == 0 && !m.done {
		b.WriteString("\n  " + m.spin.View() + boardMutedStyle.Render(" le conseil se réunit") + "\n")
	}

	if m.done {
		if usage := m.transcript.Usage; usage != nil {
			b.WriteString("\n  " + boardMutedStyle.Render(fmt.Sprintf("%d tokens", usage.TotalTokens)) + "\n")
		}
	}

	return b.String()
}

func panelHeader(p *board.Panel) string {
	label := p.Name
	if label == "" {
		label = p.Role
	}
	if p.Emoji != "" {
		label = p.Emoji + " " + label
	}
	header := boardNameStyle.Render(label) + boardDividerStyle.Render(" ──")
	if p.Done {
		header += boardMutedStyle.Render(" ✓")
	}
	return header
}
