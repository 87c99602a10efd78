package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"task-tracker/client"
)

const (
	appName     = "taskctl"
	sessionFile = "session.json"
	defaultAPI  = "http://localhost:8080"
)

var errNotLoggedIn = errors.New("not logged in, run `taskctl login` first")

// cli holds the state shared by every subcommand. It is built in
// PersistentPreRunE once flags are parsed.
type cli struct {
	apiURL    string
	configDir string
	timeout   time.Duration

	session *client.SessionState
	api     *client.APIClient
	auth    *client.Authenticator
	tasks   *client.Manager
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:               appName,
		Short:             "Track personal tasks on a task-tracker server",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	api := os.Getenv("TASKCTL_API")
	if api == "" {
		api = defaultAPI
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", api, "task API base URL (env TASKCTL_API)")
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", "", "directory holding the session file (default $XDG_CONFIG_HOME/taskctl)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 15*time.Second, "HTTP request timeout")

	root.AddCommand(c.registerCmd())
	root.AddCommand(c.loginCmd())
	root.AddCommand(c.logoutCmd())
	root.AddCommand(c.whoamiCmd())
	root.AddCommand(c.listCmd())
	root.AddCommand(c.addCmd())
	root.AddCommand(c.updateCmd())
	root.AddCommand(c.toggleCmd())
	root.AddCommand(c.rmCmd())

	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	dir := c.configDir
	if dir == "" {
		dir = defaultConfigDir()
	}
	c.session = client.NewSessionState(client.NewFileStorage(filepath.Join(dir, sessionFile)))
	c.api = client.NewAPIClient(c.apiURL, c.session, &http.Client{Timeout: c.timeout})
	c.auth = client.NewAuthenticator(c.api, c.session)
	c.tasks = client.NewManager(c.api)
	c.session.Subscribe(c.tasks.OnSession)
	return nil
}

// restore loads the saved session, which also loads the task list.
func (c *cli) restore(ctx context.Context) (client.Session, error) {
	if err := c.session.Init(ctx); err != nil {
		if client.IsAuthError(err) {
			return client.Session{}, errors.New("session expired, run `taskctl login` again")
		}
		return client.Session{}, err
	}
	s, ok := c.session.Current()
	if !ok {
		return client.Session{}, errNotLoggedIn
	}
	return s, nil
}

// defaultConfigDir uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return appName
	}
	return filepath.Join(home, ".config", appName)
}
