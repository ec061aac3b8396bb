package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pawan-ai/pawan/pkg/model"
	"github.com/pawan-ai/pawan/pkg/persona"
	"github.com/pawan-ai/pawan/pkg/usecase/account"
	"github.com/pawan-ai/pawan/pkg/usecase/chat"
	"github.com/pawan-ai/pawan/pkg/usecase/conversation"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg      config
		email    string
		password string
		mode     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "email",
			Aliases:     []string{"e"},
			Usage:       "Email address of the account to chat as",
			Sources:     cli.EnvVars("PAWAN_EMAIL"),
			Destination: &email,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Password of the account",
			Sources:     cli.EnvVars("PAWAN_PASSWORD"),
			Destination: &password,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "mode",
			Aliases:     []string{"m"},
			Usage:       "Chatbot mode (default: first mode of the catalog)",
			Destination: &mode,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, authFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Chat in the terminal with a user's conversation history",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.setupLogger(); err != nil {
				return err
			}

			// Initialize dependencies
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			identity, err := cfg.newIdentity(ctx)
			if err != nil {
				return err
			}

			personas, err := cfg.newPersonas()
			if err != nil {
				return err
			}
			if _, err := personas.Get(persona.ModeID(mode)); err != nil {
				return err
			}

			user, err := account.New(identity).Login(ctx, email, password)
			if err != nil {
				return goerr.Wrap(err, "failed to log in")
			}

			ws := conversation.New(repo)
			if err := ws.Ensure(ctx, user); err != nil {
				return err
			}

			w := c.Root().Writer
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdout:          w,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			repl := &chatREPL{
				w:    w,
				orch: chat.New(repo, gemini, chat.WithPersonas(personas)),
				ws:   ws,
				mode: persona.ModeID(mode),
				spinner: spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(w),
					spinner.WithSuffix(" thinking..."),
				),
			}

			fmt.Fprintf(w, "Logged in as %s. %d saved conversations. Type /help for commands, 'exit' to quit.\n",
				user.Email, len(ws.Conversations()))

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				quit, err := repl.handle(ctx, line)
				if err != nil {
					return err
				}
				if quit {
					break
				}
			}

			fmt.Fprintf(w, "\nChat session completed\n")
			return nil
		},
	}
}

// chatREPL interprets one line of terminal input at a time
type chatREPL struct {
	w       io.Writer
	orch    *chat.Orchestrator
	ws      *conversation.Workspace
	mode    persona.ModeID
	spinner *spinner.Spinner
}

const chatHelp = `Commands:
  /new          start a new conversation
  /list         list saved conversations
  /select N     continue conversation N from /list
  /modes        list chatbot modes
  /mode ID      switch chatbot mode
  exit          quit
`

func (r *chatREPL) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "exit", "/exit", "/quit":
		return true, nil

	case "/help":
		fmt.Fprint(r.w, chatHelp)

	case "/new":
		r.ws.SelectNew()
		fmt.Fprintln(r.w, "Started a new conversation.")

	case "/list":
		r.printConversations()

	case "/select":
		index, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Fprintln(r.w, "usage: /select N")
			return false, nil
		}
		if err := r.ws.SelectExisting(index); err != nil {
			fmt.Fprintf(r.w, "No conversation at index %d.\n", index)
			return false, nil
		}
		r.printActive()

	case "/modes":
		for _, m := range r.orch.Personas().Modes() {
			marker := " "
			if m.ID == r.currentMode() {
				marker = "*"
			}
			fmt.Fprintf(r.w, "%s %s\t%s\n", marker, m.ID, m.Label)
		}

	case "/mode":
		m, err := r.orch.Personas().Get(persona.ModeID(arg))
		if err != nil {
			fmt.Fprintf(r.w, "Unknown mode %q. Use /modes to list them.\n", arg)
			return false, nil
		}
		r.mode = m.ID
		fmt.Fprintf(r.w, "Mode: %s\n", m.Label)

	default:
		return false, r.send(ctx, line)
	}

	return false, nil
}

func (r *chatREPL) currentMode() persona.ModeID {
	if r.mode == "" {
		return r.orch.Personas().Default().ID
	}
	return r.mode
}

func (r *chatREPL) send(ctx context.Context, message string) error {
	var once sync.Once
	stopSpinner := func() {
		if r.spinner != nil {
			once.Do(r.spinner.Stop)
		}
	}
	if r.spinner != nil {
		r.spinner.Start()
	}

	result, err := r.orch.Send(ctx, r.ws, chat.Input{Mode: r.mode, Message: message}, func(text string) {
		stopSpinner()
		fmt.Fprint(r.w, text)
	})
	stopSpinner()
	fmt.Fprintln(r.w)

	if result != nil && result.GenerationErr != nil {
		fmt.Fprintf(r.w, "warning: the reply may be incomplete: %v\n", result.GenerationErr)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrStoreUnavailable):
		fmt.Fprintf(r.w, "warning: the conversation was not saved: %v\n", err)
		return nil
	case errors.Is(err, model.ErrEmptyMessage), errors.Is(err, persona.ErrUnknownMode):
		fmt.Fprintf(r.w, "%v\n", err)
		return nil
	default:
		return goerr.Wrap(err, "failed to send message")
	}
}

func (r *chatREPL) printConversations() {
	convs := r.ws.Conversations()
	if len(convs) == 0 {
		fmt.Fprintln(r.w, "No saved conversations.")
		return
	}

	active := r.ws.ActiveIndex()
	for i, conv := range convs {
		marker := " "
		if i == active {
			marker = "*"
		}
		fmt.Fprintf(r.w, "%s [%d] %s\t%s\n", marker, i, formatCreatedAt(conv.CreatedAt), conv.Title)
	}
}

func (r *chatREPL) printActive() {
	conv := r.ws.Active()
	if conv == nil {
		return
	}
	fmt.Fprintf(r.w, "--- %s ---\n", conv.Title)
	for _, msg := range conv.Messages {
		fmt.Fprintf(r.w, "%s: %s\n", msg.Role, msg.Content)
	}
}

func formatCreatedAt(t time.Time) string {
	if t.IsZero() {
		return "Timestamp not available"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
