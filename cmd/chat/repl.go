package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"doqulio-chat/internal/constant"
	"doqulio-chat/internal/entity"
	"doqulio-chat/internal/pkg/logger"
	"doqulio-chat/pkg/chatbot"
	"doqulio-chat/pkg/session"

	"github.com/fatih/color"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		backend := chatbot.NewHTTPBackend(backendURL, timeout, logger.NewNopLogger())
		if !constant.IsSupportedLanguage(language) {
			return fmt.Errorf("unsupported language %q", language)
		}
		store := session.NewStore(userID, backend, session.WithTargetLanguage(language))

		return newREPL(store, cmd.OutOrStdout()).run(ctx, cmd.InOrStdin())
	},
}

var (
	userColor      = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgGreen)
	infoColor      = color.New(color.FgYellow)
	errorColor     = color.New(color.FgRed)
)

const helpText = `Commands:
  /new              start a new chat
  /list             list chats (* marks the active one)
  /switch <n|id>    make a chat active
  /delete [n|id]    delete a chat (default: the active one)
  /attach <path>    attach a file to the next message
  /send             send the attached file without text
  /lang [name]      show or set the reply language
  /help             show this help
  /quit             exit`

type repl struct {
	store   *session.Store
	out     io.Writer
	pending *session.FileRef
}

func newREPL(store *session.Store, out io.Writer) *repl {
	return &repl{store: store, out: out}
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	infoColor.Fprintf(r.out, "Chatting as %s in %s. Type /help for commands.\n", r.store.UserID(), r.store.TargetLanguage())
	r.printHistory()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		quit, err := r.handle(ctx, scanner.Text())
		if err != nil {
			errorColor.Fprintf(r.out, "%v\n", err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

// handle executes one input line and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	name, arg := parseCommand(line)
	switch name {
	case "":
		return false, r.send(ctx, line)
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(r.out, helpText)
	case "new":
		r.store.CreateSession()
		r.printHistory()
	case "list":
		r.printSessions()
	case "switch":
		id, err := r.resolve(arg)
		if err != nil {
			return false, err
		}
		if err := r.store.SwitchActive(id); err != nil {
			return false, err
		}
		r.printHistory()
	case "delete":
		id := r.store.ActiveSessionID()
		if arg != "" {
			var err error
			if id, err = r.resolve(arg); err != nil {
				return false, err
			}
		}
		if err := r.store.DeleteSession(id); err != nil {
			return false, err
		}
		infoColor.Fprintln(r.out, "Chat deleted.")
		r.printHistory()
	case "attach":
		return false, r.attach(arg)
	case "send":
		if r.pending == nil {
			return false, errors.New("nothing attached")
		}
		return false, r.send(ctx, "")
	case "lang":
		if arg == "" {
			r.printLanguages()
			return false, nil
		}
		if err := r.store.SetTargetLanguage(arg); err != nil {
			return false, err
		}
		infoColor.Fprintf(r.out, "Replies will be in %s.\n", arg)
	default:
		return false, fmt.Errorf("unknown command /%s (try /help)", name)
	}
	return false, nil
}

func (r *repl) send(ctx context.Context, text string) error {
	draft := session.Draft{Text: text, File: r.pending}
	if strings.TrimSpace(text) == "" && draft.File == nil {
		return nil
	}

	infoColor.Fprintln(r.out, "...")
	ex, err := r.store.Submit(ctx, draft)

	var rce *session.RemoteCallError
	switch {
	case errors.As(err, &rce):
		// The store already turned the failure into an assistant message.
	case err != nil:
		return err
	}
	r.pending = nil

	if ex.Reply != nil {
		r.printMessage(*ex.Reply)
	}
	return nil
}

func (r *repl) attach(path string) error {
	if path == "" {
		return errors.New("usage: /attach <path>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return err
	}

	r.pending = &session.FileRef{Name: filepath.Base(path), MimeType: mt.String(), Data: data}
	infoColor.Fprintf(r.out, "Attached %s (%s, %s). It is sent with your next message.\n", r.pending.Name, mt.String(), r.pending.SizeLabel())
	return nil
}

// resolve accepts either a 1-based position from /list or a session id.
func (r *repl) resolve(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("missing chat number or id")
	}
	sessions := r.store.Sessions()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(sessions) {
			return "", fmt.Errorf("no chat #%d", n)
		}
		return sessions[n-1].Id, nil
	}
	return arg, nil
}

func (r *repl) printSessions() {
	active := r.store.ActiveSessionID()
	for i, s := range r.store.Sessions() {
		marker := " "
		if s.Id == active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %2d. %-33s %d messages\n", marker, i+1, s.Title, len(s.Messages))
	}
}

func (r *repl) printHistory() {
	sess := r.store.ActiveSession()
	infoColor.Fprintf(r.out, "== %s ==\n", sess.Title)
	for _, m := range sess.Messages {
		r.printMessage(m)
	}
}

func (r *repl) printMessage(m entity.ChatMessage) {
	if m.Role == constant.ChatMessageRoleUser {
		userColor.Fprint(r.out, "you: ")
	} else {
		assistantColor.Fprint(r.out, "bot: ")
	}
	fmt.Fprintln(r.out, m.Content)
	for _, a := range m.Attachments {
		fmt.Fprintf(r.out, "      [%s, %s]\n", a.Name, a.SizeLabel)
	}
}

func (r *repl) printLanguages() {
	names := make([]string, 0, len(constant.TargetLanguages))
	for name := range constant.TargetLanguages {
		names = append(names, name)
	}
	sort.Strings(names)

	current := r.store.TargetLanguage()
	for _, name := range names {
		marker := " "
		if name == current {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %s\n", marker, name)
	}
}

// parseCommand splits "/name arg" lines; plain text yields an empty name.
func parseCommand(line string) (name, arg string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "", ""
	}
	name, arg, _ = strings.Cut(line[1:], " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}
