package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"librarydesk/pkg/apiclient"
	"librarydesk/pkg/broadcast"
	"librarydesk/pkg/config"
	"librarydesk/pkg/database"
	"librarydesk/pkg/session"
	"librarydesk/pkg/views"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// cli carries what every command needs. open is called once per invocation,
// after flags are parsed.
type cli struct {
	configPath string
	open       func(configPath string) (views.Deps, error)
	password   func(prompt string) (string, error)

	deps views.Deps
	out  io.Writer
}

func main() {
	c := &cli{open: openDeps, password: readPassword}
	if err := newRootCmd(c).Execute(); err != nil {
		os.Exit(1)
	}
}

func openDeps(configPath string) (views.Deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return views.Deps{}, err
	}
	db, err := database.Open(cfg.Session.Driver, cfg.Session.DSN)
	if err != nil {
		return views.Deps{}, err
	}
	sess := session.New(database.NewGormStore(db))
	if err := sess.Restore(); err != nil {
		return views.Deps{}, fmt.Errorf("failed to restore session: %w", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	api := apiclient.New(cfg.API.BaseURL, sess,
		apiclient.WithLogger(logger),
		apiclient.WithNavigator(apiclient.NavigatorFunc(func() {
			fmt.Fprintln(os.Stderr, "Your session has expired. Run `libcli login` to sign in again.")
		})))
	return views.Deps{API: api, Broadcaster: broadcast.New(logger), Logger: logger}, nil
}

// readPassword reads a password from the terminal without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "libcli",
		Short:        "Browse the catalog, manage your loans and run the library desk",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			deps, err := c.open(c.configPath)
			if err != nil {
				return err
			}
			c.deps = deps
			c.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.deps.Broadcaster != nil {
				c.deps.Broadcaster.Wait()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", getEnv("LIBRARYDESK_CONFIG", "librarydesk.yaml"), "path to the config file")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.booksCmd(),
		c.bookCmd(),
		c.borrowCmd(),
		c.reserveCmd(),
		c.libraryCmd(),
		c.returnCmd(),
		c.cancelCmd(),
		c.shelfCmd("favorites", "Your favorite books"),
		c.shelfCmd("reading-list", "Books you plan to read"),
		c.ratingsCmd(),
		c.rateCmd(),
		c.adminCmd(),
	)
	return root
}

func (c *cli) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func parseID(arg, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, arg)
	}
	return id, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
