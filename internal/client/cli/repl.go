package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

var errUsage = errors.New("usage")

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	List(ctx context.Context) error
	Show(ctx context.Context, id int64) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Image(ctx context.Context, id int64, path string) error
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", args[0])
	}
	return id, nil
}

// runREPL starts a simple read-eval-print loop for the catalogkeeper CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The loop exits on EOF or when the user
// types "exit" or "quit".
//
//	Always:
//	  - help                 show available commands
//	  - list | l             list products
//	  - show <id>            show one product
//	  - exit | quit          leave the program
//
//	Not logged in:
//	  - register             create an account
//	  - login                authenticate
//
//	Logged in:
//	  - whoami               ask the server who the cached token belongs to
//	  - add                  create a product (Admin)
//	  - edit <id>            update a product (Admin)
//	  - delete <id>          delete a product (Admin)
//	  - image <id> <file>    upload a product image (Admin)
//	  - logout               forget the cached session
//
// Errors returned by handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		fmt.Printf("catalog %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, show <id>, add, edit <id>, delete <id>, image <id> <file>, whoami, logout, exit")
			} else {
				printlnFn("Available commands: (l)ist, show <id>, register, login, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "l", "list":
			cmdErr = a.List(ctx)

		case "add":
			cmdErr = a.Add(ctx)

		case "show", "edit", "delete":
			id, err := parseID(args)
			if err != nil {
				if errors.Is(err, errUsage) {
					printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
					continue
				}
				cmdErr = err
				break
			}
			switch cmd {
			case "show":
				cmdErr = a.Show(ctx, id)
			case "edit":
				cmdErr = a.Edit(ctx, id)
			default:
				cmdErr = a.Delete(ctx, id)
			}

		case "image":
			if len(args) < 2 {
				printlnFn("Usage: image <id> <file>")
				continue
			}
			id, err := parseID(args)
			if err != nil {
				cmdErr = err
				break
			}
			cmdErr = a.Image(ctx, id, strings.Join(args[1:], " "))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
