package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"it-network/internal/application/session"
	boardDomain "it-network/internal/domain/board"
	sessionDomain "it-network/internal/domain/session"
	"it-network/internal/infrastructure/external/clubapi"
)

var errUsage = errors.New("usage")

// app 是 CLI 指令共用的依賴。
type app struct {
	session *session.Manager
	boards  *clubapi.BoardClient
	in      *bufio.Reader
	out     io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"status":         {"status", cmdStatus},
	"login":          {"login <email> [password]", cmdLogin},
	"signup":         {"signup <user_id> <email> <name> [password]", cmdSignup},
	"logout":         {"logout", cmdLogout},
	"refresh":        {"refresh", cmdRefresh},
	"boards":         {"boards [page] [size]", cmdBoards},
	"board":          {"board <id>", cmdBoard},
	"post":           {"post <title> <content...>", cmdPost},
	"comments":       {"comments <postId>", cmdComments},
	"comment":        {"comment <postId> <text...>", cmdComment},
	"edit-comment":   {"edit-comment <id> <text...>", cmdEditComment},
	"delete-comment": {"delete-comment <id>", cmdDeleteComment},
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	if err := cmd.run(ctx, a, args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			return fmt.Errorf("%w: club %s", errUsage, cmd.usage)
		}
		return err
	}
	return nil
}

func cmdStatus(_ context.Context, a *app, _ []string) error {
	st := a.session.State()
	if !st.IsAuthenticated() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	if st.User == nil {
		fmt.Fprintln(a.out, "logged in")
		return nil
	}
	fmt.Fprintf(a.out, "logged in as %s <%s> (%s)\n", st.User.Name, st.User.Email, st.User.ID)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	password, err := a.secret(args, 1)
	if err != nil {
		return err
	}
	user, err := a.session.Login(ctx, args[0], password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(a.out, "welcome, %s\n", displayUser(user))
	return nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	password, err := a.secret(args, 3)
	if err != nil {
		return err
	}
	user, err := a.session.Signup(ctx, sessionDomain.SignupInput{
		LoginID:  args[0],
		Email:    args[1],
		Name:     args[2],
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	fmt.Fprintf(a.out, "signed up and logged in as %s\n", displayUser(user))
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdRefresh(ctx context.Context, a *app, _ []string) error {
	if a.session.Refresh(ctx) == "" {
		fmt.Fprintln(a.out, "refresh failed; logged out")
		return nil
	}
	fmt.Fprintln(a.out, "token refreshed")
	return nil
}

func cmdBoards(ctx context.Context, a *app, args []string) error {
	page, size := 0, boardDomain.DefaultPageSize
	var err error
	if len(args) > 0 {
		if page, err = strconv.Atoi(args[0]); err != nil {
			return errUsage
		}
	}
	if len(args) > 1 {
		if size, err = strconv.Atoi(args[1]); err != nil {
			return errUsage
		}
	}
	res, err := a.boards.ListBoards(ctx, page, size)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
	for _, b := range res.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Title, b.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d/%d (%d posts)\n", res.Page+1, max(res.TotalPages(), 1), res.Total)
	return nil
}

func cmdBoard(ctx context.Context, a *app, args []string) error {
	id, err := argID(args, 0)
	if err != nil {
		return err
	}
	b, err := a.boards.GetBoard(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "#%d %s\n%s\n\n%s\n", b.ID, b.Title, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.Content)
	return nil
}

func cmdPost(ctx context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	b, err := a.boards.CreateBoard(ctx, boardDomain.Draft{Title: args[0], Content: strings.Join(args[1:], " ")})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "posted #%d\n", b.ID)
	return nil
}

func cmdComments(ctx context.Context, a *app, args []string) error {
	postID, err := argID(args, 0)
	if err != nil {
		return err
	}
	items, err := a.boards.ListComments(ctx, postID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "no comments")
		return nil
	}
	for _, c := range items {
		edited := ""
		if c.Edited() {
			edited = " (edited)"
		}
		fmt.Fprintf(a.out, "[%d] %s%s: %s\n", c.ID, c.DisplayName(), edited, c.Content)
	}
	return nil
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	postID, err := argID(args, 0)
	if err != nil || len(args) < 2 {
		return errUsage
	}
	c, err := a.boards.CreateComment(ctx, postID, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "commented #%d\n", c.ID)
	return nil
}

func cmdEditComment(ctx context.Context, a *app, args []string) error {
	id, err := argID(args, 0)
	if err != nil || len(args) < 2 {
		return errUsage
	}
	if _, err := a.boards.UpdateComment(ctx, id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated comment #%d\n", id)
	return nil
}

func cmdDeleteComment(ctx context.Context, a *app, args []string) error {
	id, err := argID(args, 0)
	if err != nil {
		return err
	}
	if err := a.boards.DeleteComment(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted comment #%d\n", id)
	return nil
}

// secret 取 args[i]，沒有時從 stdin 讀一行。
func (a *app) secret(args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	fmt.Fprint(a.out, "password: ")
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required")
	}
	return line, nil
}

func argID(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}

func displayUser(u *sessionDomain.UserInfo) string {
	if u == nil {
		return "member"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
