package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"dial-chat/internal/config"
	"dial-chat/internal/llm"

	"github.com/spf13/cobra"
)

// clientOptions are the connection flags shared by every command that talks
// to a deployment. Empty values fall back to the loaded configuration.
type clientOptions struct {
	Stream     bool
	NoStream   bool
	Deployment string
	URL        string
	Token      string
	Dialect    string
	Verbose    bool
}

func bindClientFlags(cmd *cobra.Command, opts *clientOptions) {
	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "stream response")
	cmd.Flags().BoolVar(&opts.NoStream, "no-stream", false, "disable streaming response")
	cmd.Flags().StringVar(&opts.Deployment, "deployment", "", "override deployment name")
	cmd.Flags().StringVar(&opts.URL, "url", "", "override endpoint base url")
	cmd.Flags().StringVar(&opts.Token, "token", "", "override api key")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "endpoint dialect: dial or openai")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests and responses")
}

// session is everything a command needs to run remote calls.
type session struct {
	cfg    config.Config
	client *llm.ChatClient
	stream bool
	logger *slog.Logger
}

func newSession(cmd *cobra.Command, opts *clientOptions) (*session, error) {
	if opts.Stream && opts.NoStream {
		return nil, errors.New("only one of --stream or --no-stream can be set")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose)
	if err != nil {
		return nil, err
	}

	client, err := llm.NewChatClient(llm.ChatConfig{
		BaseURL:    firstNonEmpty(opts.URL, cfg.LLM.URL),
		Token:      firstNonEmpty(opts.Token, cfg.LLM.Token),
		Deployment: firstNonEmpty(opts.Deployment, cfg.LLM.Deployment),
		Dialect:    llm.Dialect(firstNonEmpty(opts.Dialect, cfg.LLM.Type)),
		Logger:     logger,
		Verbose:    opts.Verbose,
	})
	if err != nil {
		return nil, err
	}

	stream := cfg.LLM.Stream
	if opts.Stream {
		stream = true
	}
	if opts.NoStream {
		stream = false
	}
	return &session{
		cfg:    cfg,
		client: client,
		stream: stream,
		logger: logger,
	}, nil
}

// turnContext cancels one remote call on Ctrl-C and, when configured, after
// the request timeout.
func (s *session) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	if s.cfg.LLM.Timeout <= 0 {
		return sigCtx, stop
	}
	timeoutCtx, cancel := context.WithTimeout(sigCtx, s.cfg.LLM.Timeout)
	return timeoutCtx, func() {
		cancel()
		stop()
	}
}

// complete runs a single request and prints the reply to out.
func (s *session) complete(ctx context.Context, out io.Writer, messages []llm.Message) (llm.Message, error) {
	turnCtx, cancel := s.turnContext(ctx)
	defer cancel()

	req := llm.ChatRequest{Messages: messages}
	if s.stream {
		resp, err := s.client.ChatStream(turnCtx, req, func(delta string) error {
			_, writeErr := io.WriteString(out, delta)
			return writeErr
		})
		if err != nil {
			return llm.Message{}, err
		}
		_, err = io.WriteString(out, "\n")
		return resp.Message, err
	}

	resp, err := s.client.Chat(turnCtx, req)
	if err != nil {
		return llm.Message{}, err
	}
	_, err = io.WriteString(out, resp.Message.Content+"\n")
	return resp.Message, err
}

func newLogger(w io.Writer, level string, verbose bool) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.TimeOnly))
			}
			return a
		},
	}))
	slog.SetDefault(logger)
	return logger, nil
}

func buildMessages(system, prompt string) []llm.Message {
	messages := make([]llm.Message, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, llm.NewMessage(llm.RoleSystem, system))
	}
	messages = append(messages, llm.NewMessage(llm.RoleUser, prompt))
	return messages
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
