package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/hasura-intercom/internal/session"
)

func loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a username and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("INTERCOM_PASSWORD")
			}
			ctrl, cleanup, err := newController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return runLogin(cmd.Context(), cmd.OutOrStdout(), ctrl, username, password)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (defaults to $INTERCOM_PASSWORD)")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cleanup, err := newController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			return runLogout(cmd.Context(), cmd.OutOrStdout(), ctrl)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cleanup, err := newController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			printStatus(cmd.OutOrStdout(), ctrl)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored session without contacting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cleanup, err := newController(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()
			if err := ctrl.ClearSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
		},
	}
}

// runLogin は入力を検証してログインし、完了まで待ちます。
func runLogin(ctx context.Context, out io.Writer, ctrl *session.Controller, username, password string) error {
	if errs := session.ValidateCredentials(username, password); errs != nil {
		return errs
	}

	type result struct {
		username string
		err      error
	}
	done := make(chan result, 1)

	fmt.Fprintf(out, "[%s] Logging in as %s\n", session.StateProcessing, username)
	ctrl.Login(ctx, username, password,
		func(name string) { done <- result{username: name} },
		func(err error) { done <- result{err: err} },
	)

	res := <-done
	fmt.Fprintf(out, "[%s] ", ctrl.State())
	if res.err != nil {
		fmt.Fprintln(out, "Login failed")
		if session.IsInvalidCredentials(res.err) {
			return errors.New("invalid username or password")
		}
		return fmt.Errorf("login failed: %s", session.ErrorCode(res.err))
	}
	fmt.Fprintf(out, "Logged in as %s\n", res.username)
	return nil
}

// runLogout はログアウトして完了まで待ちます。未ログインなら何もしません。
func runLogout(ctx context.Context, out io.Writer, ctrl *session.Controller) error {
	if !ctrl.IsAuthenticated() {
		fmt.Fprintln(out, "Not logged in")
		return nil
	}

	type result struct {
		message string
		err     error
	}
	done := make(chan result, 1)

	ctrl.Logout(ctx,
		func(message string) { done <- result{message: message} },
		func(err error) { done <- result{err: err} },
	)

	res := <-done
	if res.err != nil {
		return fmt.Errorf("logout failed: %s", session.ErrorCode(res.err))
	}
	if res.message != "" {
		fmt.Fprintln(out, res.message)
	}
	fmt.Fprintln(out, "Logged out")
	return nil
}

func printStatus(out io.Writer, ctrl *session.Controller) {
	ep := ctrl.Endpoints()
	fmt.Fprintf(out, "Auth:  %s\n", ep.Auth)
	fmt.Fprintf(out, "Data:  %s\n", ep.Data)
	if !ctrl.IsAuthenticated() {
		fmt.Fprintln(out, "Not logged in")
		return
	}
	sess := ctrl.Session()
	fmt.Fprintf(out, "User:  %s (%s)\n", sess.Username, sess.ID)
	fmt.Fprintf(out, "Roles: %s\n", strings.Join(sess.Roles, ", "))
}
