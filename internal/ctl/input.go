package ctl

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPasswordMismatch = errors.New("passwords do not match")

// ReadPassword prints prompt to w and reads a password from the terminal
// without echo. The caller should clear the returned slice when done.
func ReadPassword(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// ReadNewPassword asks for a password twice and fails when the entries differ.
func ReadNewPassword(w io.Writer) ([]byte, error) {
	pw, err := ReadPassword(w, "Enter password: ")
	if err != nil {
		return nil, err
	}
	again, err := ReadPassword(w, "Repeat password: ")
	defer common.WipeByteArray(again)
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	if string(pw) != string(again) {
		common.WipeByteArray(pw)
		return nil, errPasswordMismatch
	}
	return pw, nil
}
