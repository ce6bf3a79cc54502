package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/internal/bootstrap"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
)

type command struct {
	summary string
	run     func(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error
}

var commandOrder = []string{"login", "whoami", "status", "passwd", "register", "logout"}

var commands = map[string]command{
	"login":    {"sign in and store the session", loginCmd},
	"whoami":   {"print the current user", whoamiCmd},
	"status":   {"print session and service status", statusCmd},
	"passwd":   {"change the current user's password", passwdCmd},
	"register": {"create a user (admin only)", registerCmd},
	"logout":   {"end the session", logoutCmd},
}

// secretFrom returns value, or reads one line from stdin when value is "-".
func secretFrom(value string) (string, error) {
	if value != "-" {
		return value, nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func loginCmd(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("SESSIONCTL_PASSWORD"), `password, or "-" to read it from stdin`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := secretFrom(*password)
	if err != nil {
		return err
	}

	u, err := app.Session.Login(ctx, *email, pw)
	if err != nil {
		fmt.Fprintf(out, "%s%s%s\n", Red, app.Session.Error(), ResetColor)
		return err
	}
	fmt.Fprintf(out, "%sLogged in%s as %s <%s> (%s)\n", Green, ResetColor, u.FullName(), u.Email, roleLabel(u.Role))
	return nil
}

func whoamiCmd(_ context.Context, app *bootstrap.App, _ []string, out io.Writer) error {
	u := app.Session.User()
	if u == nil || !app.Session.IsAuthenticated() {
		fmt.Fprintf(out, "%sNot logged in%s\n", Yellow, ResetColor)
		return apperrors.ErrNotAuthenticated
	}
	printUser(out, u)
	return nil
}

func statusCmd(ctx context.Context, app *bootstrap.App, _ []string, out io.Writer) error {
	snap := app.Session.Snapshot()
	if snap.Authenticated {
		fmt.Fprintf(out, "Session:  %sauthenticated%s as %s (%s)\n", Green, ResetColor, snap.User.Email, roleLabel(snap.User.Role))
	} else {
		fmt.Fprintf(out, "Session:  %snot authenticated%s\n", Yellow, ResetColor)
	}
	if !snap.Expiry.IsZero() {
		fmt.Fprintf(out, "Expires:  %s\n", snap.Expiry.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(out, "Refresh:  %s\n", snap.RefreshState)
	fmt.Fprintf(out, "Store:    %s\n", app.Config.GetStoreDriver())

	msg, err := app.Session.API().Health(ctx)
	if err != nil {
		fmt.Fprintf(out, "Service:  %s%s%s\n", Red, authapi.MessageOf(err, err.Error()), ResetColor)
		return nil
	}
	fmt.Fprintf(out, "Service:  %s%s%s\n", Green, msg, ResetColor)
	return nil
}

func passwdCmd(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("passwd", flag.ContinueOnError)
	fs.SetOutput(out)
	current := fs.String("current", "", `current password, or "-" to read it from stdin`)
	next := fs.String("new", "", "new password (6-100 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cur, err := secretFrom(*current)
	if err != nil {
		return err
	}

	if err := app.Session.ChangePassword(ctx, cur, *next); err != nil {
		fmt.Fprintf(out, "%s%s%s\n", Red, app.Session.Error(), ResetColor)
		return err
	}
	fmt.Fprintf(out, "%sPassword changed%s\n", Green, ResetColor)
	return nil
}

func registerCmd(ctx context.Context, app *bootstrap.App, args []string, out io.Writer) error {
	if !app.Session.HasAnyRole(users.AdminRoles...) {
		fmt.Fprintf(out, "%sOnly administrators can register users%s\n", Red, ResetColor)
		return apperrors.ErrNotAuthenticated
	}

	var req authapi.RegisterRequest
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Password, "password", "", "initial password")
	fs.StringVar(&req.FirstName, "first", "", "first name")
	fs.StringVar(&req.LastName, "last", "", "last name")
	fs.StringVar(&req.EmployeeID, "employee-id", "", "employee ID")
	fs.StringVar(&req.JobTitle, "title", "", "job title")
	fs.StringVar(&req.Department, "department", "", "department")
	if err := fs.Parse(args); err != nil {
		return err
	}

	u, err := app.Session.Register(ctx, req)
	if err != nil {
		fmt.Fprintf(out, "%s%s%s\n", Red, app.Session.Error(), ResetColor)
		return err
	}
	fmt.Fprintf(out, "%sRegistered%s %s <%s> with id %d\n", Green, ResetColor, u.FullName(), u.Email, u.ID)
	return nil
}

func logoutCmd(ctx context.Context, app *bootstrap.App, _ []string, out io.Writer) error {
	app.Session.Logout(ctx)
	fmt.Fprintf(out, "%sLogged out%s\n", Green, ResetColor)
	return nil
}

func printUser(out io.Writer, u *users.User) {
	fmt.Fprintf(out, "%s <%s>\n", u.FullName(), u.Email)
	fmt.Fprintf(out, "  Role:       %s\n", roleLabel(u.Role))
	if u.JobTitle != "" {
		fmt.Fprintf(out, "  Title:      %s\n", u.JobTitle)
	}
	if u.Department != "" {
		fmt.Fprintf(out, "  Department: %s\n", u.Department)
	}
	if u.EmployeeID != "" {
		fmt.Fprintf(out, "  Employee:   %s\n", u.EmployeeID)
	}
}
