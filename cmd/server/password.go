package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"mailtriage/internal/infrastructure/config"
	"mailtriage/internal/infrastructure/credential"
)

// secretStore is the part of credential.Store the password commands need.
type secretStore interface {
	Set(key, value string) error
	Delete(key string) error
}

// setPassword stores the mail password for -user (default EMAIL_USER) in the
// keyring. The password is read without echo from a terminal, otherwise from
// the first line of in.
func setPassword(args []string, store secretStore, in io.Reader, out io.Writer) error {
	user, err := parseUserFlag("set-password", args)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Password for %s: ", user)
	password, err := readPassword(in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return errors.New("empty password")
	}

	if err := store.Set(config.PasswordKey(user), password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Stored password for %s\n", user)
	return nil
}

// deletePassword removes the stored mail password for -user.
func deletePassword(args []string, store secretStore, out io.Writer) error {
	user, err := parseUserFlag("delete-password", args)
	if err != nil {
		return err
	}

	if err := store.Delete(config.PasswordKey(user)); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted password for %s\n", user)
	return nil
}

func parseUserFlag(name string, args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	user := fs.String("user", os.Getenv("EMAIL_USER"), "mailbox user the password belongs to")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *user == "" {
		return "", errors.New("no user: pass -user or set EMAIL_USER")
	}
	return *user, nil
}

func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// runPasswordCommand handles the keyring subcommands. It reports false when
// args name none of them.
func runPasswordCommand(args []string) (bool, error) {
	if len(args) == 0 || (args[0] != "set-password" && args[0] != "delete-password") {
		return false, nil
	}

	config.LoadDotEnv()
	store, err := credential.Open()
	if err != nil {
		return true, err
	}

	if args[0] == "set-password" {
		return true, setPassword(args[1:], store, os.Stdin, os.Stdout)
	}
	return true, deletePassword(args[1:], store, os.Stdout)
}
