// Command passwd hashes a password for REALMKEEPER_ADMIN_PASSWORD_HASH.
//
//	passwd [-alg argon2id|bcrypt] [-cost 10]
//
// The password is read from the terminal without echo, or from stdin when
// stdin is not a terminal.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/realmkeeper/internal/common"
	"github.com/dmitrijs2005/realmkeeper/internal/cryptox"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

func readSecret(stdin *os.File, prompt io.Writer) ([]byte, error) {
	fd := int(stdin.Fd())
	if !isTerminal(fd) {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	fmt.Fprint(prompt, "Enter password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(prompt)
	return pw, err
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	alg := fs.String("alg", string(cryptox.Argon2id), "hash algorithm (argon2id or bcrypt)")
	cost := fs.Int("cost", 10, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasher, err := cryptox.NewPasswordHasher(cryptox.Algorithm(*alg), cryptox.WithBcryptCost(*cost))
	if err != nil {
		return err
	}

	secret, err := readSecret(stdin, stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(secret)

	encoded, err := hasher.Hash(string(secret))
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(stdout, encoded)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
