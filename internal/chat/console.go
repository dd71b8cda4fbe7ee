package chat

import (
	"bufio"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"dial-chat/internal/llm"

	"github.com/charmbracelet/lipgloss"
)

//go:embed default_system_prompt.md
var defaultSystemPrompt string

const (
	commandExit    = "exit"
	commandHistory = "history"
)

// DefaultSystemPrompt is used when the user leaves the system prompt blank.
func DefaultSystemPrompt() string {
	return strings.TrimSpace(defaultSystemPrompt)
}

type state int

const (
	stateAwaitingSystemPrompt state = iota
	stateChatLoop
	stateDone
)

// TurnContextFunc derives the context one remote call runs under.
type TurnContextFunc func(ctx context.Context) (context.Context, context.CancelFunc)

type Options struct {
	Client llm.Client
	In     io.Reader
	Out    io.Writer
	// Stream selects the streaming call for every turn of the session.
	Stream bool
	// SystemPrompt, when set, is used without asking.
	SystemPrompt string
	// DefaultSystemPrompt replaces the built-in default for a blank answer.
	DefaultSystemPrompt string
	TurnContext         TurnContextFunc
	Logger              *slog.Logger
}

// Console drives one interactive session: system prompt first, then a
// line-per-turn chat loop until "exit" or end of input.
type Console struct {
	client        llm.Client
	in            *bufio.Reader
	out           io.Writer
	stream        bool
	presetPrompt  string
	defaultPrompt string
	turnContext   TurnContextFunc
	logger        *slog.Logger
	styles        styles

	state        state
	conversation *Conversation
}

func NewConsole(opts Options) (*Console, error) {
	if opts.Client == nil {
		return nil, errors.New("chat client is required")
	}
	if opts.In == nil {
		return nil, errors.New("chat input is required")
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	defaultPrompt := strings.TrimSpace(opts.DefaultSystemPrompt)
	if defaultPrompt == "" {
		defaultPrompt = DefaultSystemPrompt()
	}
	turnContext := opts.TurnContext
	if turnContext == nil {
		turnContext = context.WithCancel
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		client:        opts.Client,
		in:            bufio.NewReader(opts.In),
		out:           out,
		stream:        opts.Stream,
		presetPrompt:  strings.TrimSpace(opts.SystemPrompt),
		defaultPrompt: defaultPrompt,
		turnContext:   turnContext,
		logger:        logger,
		styles:        newStyles(out),
		state:         stateAwaitingSystemPrompt,
		conversation:  NewConversation(),
	}, nil
}

func (c *Console) Conversation() *Conversation {
	return c.conversation
}

// Run blocks until the session ends. Failed turns are reported on the output
// and do not end the session; only input or output failures are returned.
func (c *Console) Run(ctx context.Context) error {
	for c.state != stateDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		switch c.state {
		case stateAwaitingSystemPrompt:
			err = c.setupSystemPrompt()
		case stateChatLoop:
			err = c.step(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) setupSystemPrompt() error {
	prompt := c.presetPrompt
	if prompt == "" {
		if _, err := fmt.Fprint(c.out, "System prompt (empty for default): "); err != nil {
			return err
		}
		line, ok, err := c.readLine()
		if err != nil {
			return err
		}
		if !ok {
			c.state = stateDone
			return nil
		}
		prompt = line
	}
	if prompt == "" {
		prompt = c.defaultPrompt
	}
	c.conversation.Add(llm.NewMessage(llm.RoleSystem, prompt))
	if _, err := fmt.Fprintf(c.out, "%s %s\n\n%s\n",
		c.styles.system.Render("System:"),
		prompt,
		c.styles.hint.Render("Type 'exit' to quit or 'history' to show the conversation."),
	); err != nil {
		return err
	}
	c.state = stateChatLoop
	return nil
}

func (c *Console) step(ctx context.Context) error {
	if _, err := fmt.Fprint(c.out, c.styles.user.Render("You:")+" "); err != nil {
		return err
	}
	line, ok, err := c.readLine()
	if err != nil {
		return err
	}
	if !ok {
		_, err := fmt.Fprintln(c.out)
		c.state = stateDone
		return err
	}
	switch strings.ToLower(line) {
	case "":
		return nil
	case commandExit:
		c.state = stateDone
		return nil
	case commandHistory:
		return c.printHistory()
	}

	c.conversation.Add(llm.NewMessage(llm.RoleUser, line))
	reply, err := c.complete(ctx)
	if err != nil {
		return c.reportTurnError(err)
	}
	c.conversation.Add(reply)
	return nil
}

func (c *Console) complete(ctx context.Context) (llm.Message, error) {
	turnCtx, cancel := c.turnContext(ctx)
	defer cancel()

	if _, err := fmt.Fprintln(c.out, c.styles.assistant.Render("AI:")); err != nil {
		return llm.Message{}, err
	}
	req := llm.ChatRequest{Messages: c.conversation.Messages()}
	if !c.stream {
		resp, err := c.client.Chat(turnCtx, req)
		if err != nil {
			return llm.Message{}, err
		}
		if _, err := fmt.Fprintln(c.out, resp.Message.Content); err != nil {
			return llm.Message{}, err
		}
		return resp.Message, nil
	}

	resp, err := c.client.ChatStream(turnCtx, req, func(delta string) error {
		_, writeErr := io.WriteString(c.out, delta)
		return writeErr
	})
	// Terminates the streamed line, including a partially rendered reply.
	if _, writeErr := fmt.Fprintln(c.out); writeErr != nil && err == nil {
		err = writeErr
	}
	if err != nil {
		return llm.Message{}, err
	}
	return resp.Message, nil
}

func (c *Console) reportTurnError(err error) error {
	c.logger.Debug("chat turn failed", "error", err)
	_, writeErr := fmt.Fprintln(c.out, c.styles.err.Render("error:"), describeError(err))
	return writeErr
}

func (c *Console) printHistory() error {
	for _, message := range c.conversation.Messages() {
		if _, err := fmt.Fprintf(c.out, "%s %s\n", c.styles.role(message.Role), message.Content); err != nil {
			return err
		}
	}
	return nil
}

// readLine returns the next trimmed line; ok is false at end of input.
func (c *Console) readLine() (string, bool, error) {
	line, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", false, nil
			}
			return strings.TrimSpace(line), true, nil
		}
		return "", false, fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), true, nil
}

func describeError(err error) string {
	var httpErr *llm.HTTPError
	var decodeErr *llm.DecodeError
	switch {
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("malformed stream data: %s (%v)", decodeErr.Line, decodeErr.Err)
	default:
		return err.Error()
	}
}

type styles struct {
	system    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	hint      lipgloss.Style
	err       lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		system:    r.NewStyle().Foreground(lipgloss.Color("240")).Italic(true),
		user:      r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		assistant: r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		hint:      r.NewStyle().Foreground(lipgloss.Color("8")),
		err:       r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (s styles) role(role llm.Role) string {
	label := string(role) + ":"
	switch role {
	case llm.RoleSystem:
		return s.system.Render(label)
	case llm.RoleUser:
		return s.user.Render(label)
	default:
		return s.assistant.Render(label)
	}
}
