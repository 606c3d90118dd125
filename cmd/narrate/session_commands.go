package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/narrate-web/internal/app"
	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session"
	"github.com/jrsteele09/narrate-web/users"
	"github.com/spf13/cobra"
)

type sessionView struct {
	Authenticated bool           `json:"authenticated" yaml:"authenticated"`
	State         session.State  `json:"state" yaml:"state"`
	ExpiresAt     *time.Time     `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Profile       *users.Profile `json:"profile,omitempty" yaml:"profile,omitempty"`
}

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newRegisterCommand(ctx),
		newLogoutCommand(ctx),
		newWhoamiCommand(ctx),
		newRefreshCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := promptCredentials(&email, &password, nil); err != nil {
				return err
			}
			if err := users.ValidateCredentials(email, password); err != nil {
				return err
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				sess, err := a.Session.Login(cmd.Context(), email, password)
				if err != nil {
					return authFailure(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%d credits)\n", sess.Profile.Email, sess.Profile.Credits)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var email, password, confirm string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			passwordGiven := password != ""
			if err := promptCredentials(&email, &password, &confirm); err != nil {
				return err
			}
			if passwordGiven {
				confirm = password
			}
			if err := users.ValidateRegistration(email, password, confirm); err != nil {
				return err
			}
			if users.RatePassword(password) != users.PasswordStrong {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: use at least 8 characters for a strong password")
			}
			return ctx.withApp(cmd, func(a *app.App) error {
				sess, err := a.Session.Register(cmd.Context(), email, password)
				if err != nil {
					return authFailure(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s (%d credits)\n", sess.Profile.Email, sess.Profile.Credits)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				a.Session.Logout()
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
				return nil
			})
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if refresh {
					if err := a.Session.RefreshProfile(cmd.Context()); err != nil && !apperrors.Is(err, apperrors.ErrNotAuthenticated) {
						fmt.Fprintf(cmd.ErrOrStderr(), "warning: showing cached profile: %v\n", err)
					}
				}

				view := sessionView{State: a.Session.State()}
				if sess, ok := a.Session.Current(); ok {
					view.Authenticated = true
					view.ExpiresAt = &sess.ExpiresAt
					view.Profile = &sess.Profile
				}

				if f := ctx.output(); f != outputTable {
					return writeStructured(cmd.OutOrStdout(), f, view)
				}
				if !view.Authenticated {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
					return nil
				}
				p := view.Profile
				rows := [][]string{
					{"Email", p.Email},
					{"Plan", string(p.PlanOrDefault())},
					{"Credits", strconv.Itoa(p.Credits)},
					{"Session", string(view.State)},
					{"Expires", view.ExpiresAt.Local().Format(time.RFC1123)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Fetch the latest profile from the backend first")
	return cmd
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the access token now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app.App) error {
				if _, ok := a.Session.Current(); !ok && a.Session.State() == session.StateUnauthenticated {
					return apperrors.ErrNotAuthenticated
				}
				if !a.Session.RefreshTokens(cmd.Context()) {
					return apperrors.ErrSessionExpired
				}
				sess, _ := a.Session.Current()
				fmt.Fprintf(cmd.OutOrStdout(), "Token renewed, valid until %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
				return nil
			})
		},
	}
}

func authFailure(err error) error {
	if apperrors.Is(err, apperrors.ErrInvalidCredentials) {
		return fmt.Errorf("sign in rejected: %w", err)
	}
	return err
}
