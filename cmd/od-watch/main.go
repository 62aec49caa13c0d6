// Command od-watch is a terminal companion for the OD portal: students log
// in with their college email and watch their request history refresh in the
// background; faculty review and decide pending requests.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/citport/od-portal-api/internal/client"
	"github.com/citport/od-portal-api/internal/models"
	"github.com/citport/od-portal-api/internal/session"
	"github.com/citport/od-portal-api/internal/view"
)

const usage = `Usage: od-watch [flags] <command> [args]

Commands:
  login <email>                 student login with a college email
  faculty-login <user> <pass>   faculty login
  logout                        clear the saved session
  submit                        submit an OD request (see submit flags)
  history                       show the logged-in student's history
  all                           show every request (faculty)
  decide <id> <approved|rejected>   record a faculty decision
  stats                         show aggregate counters
  health                        probe the backend

Flags:
`

func main() {
	var (
		server      = flag.String("server", envOr("OD_SERVER", "http://localhost:8080"), "backend base URL")
		sessionPath = flag.String("session", os.Getenv("OD_SESSION_FILE"), "session file path")
		interval    = flag.Duration("interval", 30*time.Second, "background refresh interval")
		watch       = flag.Bool("watch", false, "keep refreshing until interrupted")
		search      = flag.String("search", "", "substring filter over venue, reason and description")
		status      = flag.String("status", "all", "status filter: all, pending, approved or rejected")
		sortKey     = flag.String("sort", "date-desc", "sort order: date-desc, date-asc or status")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logr := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logr = l
		}
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{
		client: client.New(*server, logr),
		store:  session.NewStore(*sessionPath),
		logger: logr,
		state: view.FilterState{
			Search: *search,
			Status: view.StatusFilter(*status),
			Sort:   view.SortKey(*sortKey),
		},
		interval: *interval,
		watch:    *watch,
	}

	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	client   *client.Client
	store    *session.Store
	logger   *zap.Logger
	state    view.FilterState
	interval time.Duration
	watch    bool
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	sess, err := a.store.Load()
	if err != nil {
		return err
	}
	if sess.AccessToken != "" {
		a.client.SetToken(sess.AccessToken)
	}

	switch cmd {
	case "login":
		if len(args) != 1 {
			return fmt.Errorf("usage: od-watch login <email>")
		}
		return a.login(ctx, args[0])
	case "faculty-login":
		if len(args) != 2 {
			return fmt.Errorf("usage: od-watch faculty-login <username> <password>")
		}
		return a.facultyLogin(ctx, args[0], args[1])
	case "logout":
		return a.store.Clear()
	case "submit":
		return a.submit(ctx, sess, args)
	case "history":
		return a.history(ctx, sess)
	case "all":
		return a.all(ctx)
	case "decide":
		if len(args) != 2 {
			return fmt.Errorf("usage: od-watch decide <id> <approved|rejected>")
		}
		return a.decide(ctx, args[0], models.RequestStatus(args[1]))
	case "stats":
		return a.stats(ctx)
	case "health":
		return a.client.Healthcheck(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, email string) error {
	profile, err := a.client.StudentLogin(ctx, email)
	if err != nil {
		return err
	}
	if err := a.store.Save(session.Session{Role: session.RoleStudent, StudentEmail: profile.Email}); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s (%s, batch %s)\n", profile.Name, profile.Department, profile.RollYear)
	return nil
}

func (a *app) facultyLogin(ctx context.Context, username, password string) error {
	res, err := a.client.FacultyLogin(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.store.Save(session.Session{
		Role:            session.RoleFaculty,
		FacultyUsername: res.Username,
		AccessToken:     res.AccessToken,
	}); err != nil {
		return err
	}
	fmt.Printf("Logged in as faculty %s\n", res.Username)
	return nil
}

func (a *app) submit(ctx context.Context, sess session.Session, args []string) error {
	if sess.Role != session.RoleStudent || !sess.Active() {
		return fmt.Errorf("submit requires a student login")
	}

	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	var draft models.RequestDraft
	fs.StringVar(&draft.Name, "name", "", "student name")
	fs.StringVar(&draft.DeptName, "dept", "", "department code")
	fs.StringVar(&draft.RollNo, "roll", "", "roll number")
	fs.StringVar(&draft.Section, "section", "", "class section")
	fs.StringVar(&draft.Reason, "reason", "", "reason for on-duty leave")
	fs.StringVar(&draft.Venue, "venue", "", "event venue")
	fs.StringVar(&draft.Description, "desc", "", "event description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	draft.StudentEmail = sess.StudentEmail

	lifecycle := view.NewLifecycle(a.client, a.logger)
	created, err := lifecycle.Submit(ctx, draft)
	if err != nil {
		return err
	}
	fmt.Printf("Submitted %s (status %s)\n", created.ID, created.Status)
	return nil
}

func (a *app) history(ctx context.Context, sess session.Session) error {
	if sess.Role != session.RoleStudent || !sess.Active() {
		return fmt.Errorf("history requires a student login")
	}
	fetch := func(ctx context.Context) ([]view.Entry, error) {
		history, err := a.client.ListByEmail(ctx, sess.StudentEmail)
		if err != nil {
			return nil, err
		}
		return view.FromHistory(history), nil
	}
	return a.render(ctx, fetch)
}

func (a *app) all(ctx context.Context) error {
	fetch := func(ctx context.Context) ([]view.Entry, error) {
		requests, err := a.client.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		return view.FromRequests(requests), nil
	}
	return a.render(ctx, fetch)
}

// render prints the collection once, or keeps it fresh under --watch until
// the context is cancelled.
func (a *app) render(ctx context.Context, fetch view.FetchFunc) error {
	if !a.watch {
		entries, err := fetch(ctx)
		if err != nil {
			return err
		}
		a.print(entries)
		return nil
	}

	poller := view.NewPoller(fetch, a.interval, a.logger, func(entries []view.Entry) {
		a.print(entries)
	})
	poller.Start(ctx)
	defer poller.Stop()

	<-ctx.Done()
	return nil
}

func (a *app) print(entries []view.Entry) {
	filtered := view.Apply(entries, a.state)
	stats := view.Stats(entries)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLL\tVENUE\tREASON\tSTATUS\tAPPLIED")
	for _, e := range filtered {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shorten(e.ID), e.RollNo, e.Venue, e.Reason, e.Status, e.AppliedAt)
	}
	w.Flush() //nolint:errcheck
	fmt.Printf("%d shown of %d total (%d pending, %d approved, %d rejected)\n",
		len(filtered), stats.Total, stats.Pending, stats.Approved, stats.Rejected)
}

func (a *app) decide(ctx context.Context, id string, status models.RequestStatus) error {
	requests, err := a.client.ListAll(ctx)
	if err != nil {
		return err
	}
	lifecycle := view.NewLifecycle(a.client, a.logger)
	_, changed, err := lifecycle.UpdateStatus(ctx, view.FromRequests(requests), id, status)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Printf("Request %s already %s\n", shorten(id), status)
		return nil
	}
	fmt.Printf("Request %s %s\n", shorten(id), status)
	return nil
}

func (a *app) stats(ctx context.Context) error {
	stats, err := a.client.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("total %d, pending %d, approved %d, rejected %d\n",
		stats.Total, stats.Pending, stats.Approved, stats.Rejected)
	return nil
}

func shorten(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
