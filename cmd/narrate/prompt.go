package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

func canPrompt() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptCredentials asks for whichever of email and password is still empty.
// With confirm set a second password field is shown for sign up.
func promptCredentials(email, password *string, confirm *string) error {
	var fields []huh.Field
	if *email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(email))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password))
		if confirm != nil {
			fields = append(fields, huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(confirm))
		}
	}
	if len(fields) == 0 {
		return nil
	}
	if !canPrompt() {
		return fmt.Errorf("email and password are required; pass --email and --password")
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func confirmAction(message string) (bool, error) {
	if !canPrompt() {
		return false, fmt.Errorf("%s: pass --yes to confirm", message)
	}
	confirmed := false
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().Title(message).Value(&confirmed)))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}
