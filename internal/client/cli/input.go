package cli

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"golang.org/x/term"
)

// maxIdentityLength matches the limit the server enforces at registration.
const maxIdentityLength = 256

var (
	ErrEmptyIdentity    = errors.New("identity must not be empty")
	ErrIdentityTooLong  = fmt.Errorf("identity must be at most %d bytes", maxIdentityLength)
	ErrEmptyPassword    = errors.New("password must not be empty")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// termReadPassword reads without echo; replaced in tests.
var termReadPassword = term.ReadPassword

// ReadIdentity asks for an identity on w and reads one line from r.
// A final line without a newline is accepted.
func ReadIdentity(r *bufio.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "Identity: ")

	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	identity := strings.TrimSpace(line)
	switch {
	case identity == "":
		return "", ErrEmptyIdentity
	case len(identity) > maxIdentityLength:
		return "", ErrIdentityTooLong
	}
	return identity, nil
}

// ReadPassword reads a password from the terminal. The caller wipes the
// returned slice.
func ReadPassword(w io.Writer, prompt string) ([]byte, error) {
	fmt.Fprint(w, prompt)
	pw, err := termReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(pw) == 0 {
		return nil, ErrEmptyPassword
	}
	return pw, nil
}

// ReadNewPassword asks twice and returns the password only when both
// entries agree. The confirmation copy is wiped before returning.
func ReadNewPassword(w io.Writer) ([]byte, error) {
	pw, err := ReadPassword(w, "Password: ")
	if err != nil {
		return nil, err
	}

	confirm, err := ReadPassword(w, "Repeat password: ")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if subtle.ConstantTimeCompare(pw, confirm) != 1 {
		common.WipeByteArray(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}
