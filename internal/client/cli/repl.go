package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/carpool/internal/apperr"
)

// printlnFn is a test seam for the prompt and loop messages.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App satisfies it.
type execIface interface {
	isLoggedIn() bool
	takeExpired() error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Get(ctx context.Context, paths []string) error
	Send(ctx context.Context, method, path, body string) error
	Delete(ctx context.Context, path string) error
}

// runREPL reads one command per line and dispatches it. It returns on EOF,
// "exit" or "quit". Handler errors are printed by the handlers themselves.
//
// Before every prompt a pending session-expired notice is shown and the user
// is taken back to the login prompt.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if err := a.takeExpired(); err != nil {
			printlnFn(expiredMessage(err))
			_ = a.Login(ctx)
		}

		printlnFn(fmt.Sprintf("carpool %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: get, post, put, patch, delete, status, logout, exit")
			} else {
				printlnFn("Available commands: login, status, get, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "get":
			_ = a.Get(ctx, args)

		case "post", "put", "patch":
			path, body := "", ""
			if len(args) > 0 {
				path = args[0]
				body = restAfter(line, cmd, path)
			}
			_ = a.Send(ctx, strings.ToUpper(cmd), path, body)

		case "delete":
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			_ = a.Delete(ctx, path)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

// restAfter returns the raw remainder of line after the command and path,
// so JSON bodies keep their spacing.
func restAfter(line, cmd, path string) string {
	rest := strings.TrimSpace(line)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, cmd))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, path))
	return rest
}

func expiredMessage(err error) string {
	var authn *apperr.AuthenticationError
	if errors.As(err, &authn) && authn.Error() != "" {
		return authn.Error()
	}
	return apperr.MsgSessionExpired
}
