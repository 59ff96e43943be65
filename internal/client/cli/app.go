package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/client"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/config"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/services"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/tokencache"
	"github.com/dmitrijs2005/catalogkeeper/internal/cryptox"
)

const onlineCheckInterval = 15 * time.Second

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// stateSource reports authentication state flips.
type stateSource interface {
	Subscribe(fn func(tokencache.State)) (unsubscribe func())
}

type App struct {
	config   *config.Config
	db       *sql.DB
	auth     services.AuthService
	products services.ProductService
	api      pinger
	states   stateSource
	reader   *bufio.Reader
	out      io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	key, err := cryptox.LoadOrCreateKey(c.KeyPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("token cache key: %w", err)
	}

	cache, err := tokencache.New(metadata.NewSQLiteRepository(db), key)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr, c.RequestTimeout, cache)

	return &App{
		config:   c,
		db:       db,
		auth:     services.NewAuthService(apiClient, cache),
		products: services.NewProductService(apiClient, cache),
		api:      apiClient,
		states:   cache,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	_, ok := a.auth.Current()
	return ok
}

// status renders the prompt suffix, e.g. "(alice User online)".
func (a *App) status() string {
	s := ""
	if sess, ok := a.auth.Current(); ok {
		s = sess.Username + " " + sess.Role + " "
	}
	s += string(a.currentMode())
	if s == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) onStateChange(st tokencache.State) {
	switch st {
	case tokencache.Authenticated:
		if sess, ok := a.auth.Current(); ok {
			fmt.Fprintf(a.out, "Signed in as %s (%s), session valid until %s\n",
				sess.Username, sess.Role, sess.Expiration.Local().Format(time.DateTime))
		}
	case tokencache.Unauthenticated:
		fmt.Fprintln(a.out, "Signed out")
	}
}

// Run restores any cached session, then blocks in the REPL until the user
// exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	fmt.Fprintln(a.out, "Welcome to the catalogkeeper CLI (type 'help' for commands)")

	if a.states != nil {
		unsubscribe := a.states.Subscribe(a.onStateChange)
		defer unsubscribe()
	}

	if err := a.auth.Restore(ctx); err != nil {
		log.Printf("could not restore session: %s", err.Error())
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, onlineCheckInterval)

	runREPL(ctx, a, a.status, a.reader)
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// prompt between online and offline.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.api.Ping(pctx); err != nil {
			a.setMode(ModeOffline)
			return
		}
		a.setMode(ModeOnline)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			check()
		case <-ctx.Done():
			return
		}
	}
}
