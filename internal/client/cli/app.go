package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/client/config"
	"github.com/dmitrijs2005/contactbook/internal/client/geocode"
	"github.com/dmitrijs2005/contactbook/internal/client/repositories/kvstore"
	"github.com/dmitrijs2005/contactbook/internal/client/services"
	"github.com/dmitrijs2005/contactbook/internal/client/storage"
	"github.com/dmitrijs2005/contactbook/internal/clock"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/metrics"
)

// Picker is the geocoding capability the contact form needs.
type Picker interface {
	Reverse(ctx context.Context, lat, lng float64) geocode.Place
	Search(ctx context.Context, query string) []geocode.Place
	Resolve(ctx context.Context, query string) (geocode.Place, bool)
	SearchEnabled() bool
}

// App is the composition root: it owns the stores and drives them from
// the terminal.
type App struct {
	auth     services.AuthService
	contacts services.ContactService
	picker   Picker
	metrics  *metrics.Recorder
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer

	metricsAddr string
	closeFn     func() error
}

// NewApp opens storage, loads both stores and prepares the geocoder.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Nop{}
	}

	repo, err := kvstore.Open(ctx, kvstore.Options{
		Driver:    cfg.StorageDriver,
		DSN:       cfg.DatabaseDSN,
		RedisAddr: cfg.RedisAddr,
		RedisDB:   cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	picker, err := geocode.NewPicker(geocode.Options{
		BaseURL:       cfg.GeocoderURL,
		UserAgent:     cfg.GeocoderUserAgent,
		CountryCodes:  cfg.GeocoderCountryCodes,
		Language:      cfg.GeocoderLanguage,
		SearchEnabled: cfg.GeocoderSearch,
		Timeout:       cfg.GeocoderTimeout,
		Logger:        log,
	})
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	rec := metrics.NewRecorder()
	store := storage.NewStore(repo, log, rec)

	opts := services.Options{Logger: log, Metrics: rec}
	if cfg.SimulateLatency {
		opts.Sleeper = clock.Real{}
		opts.Latency = services.DefaultLatency()
	}

	auth := services.NewAuthService(ctx, store, opts)
	contacts := services.NewContactService(ctx, store, auth, opts)

	a := newApp(auth, contacts, picker, bufio.NewReader(os.Stdin), os.Stdout)
	a.log = log
	a.metrics = rec
	a.metricsAddr = cfg.MetricsAddr
	a.closeFn = repo.Close
	return a, nil
}

func newApp(auth services.AuthService, contacts services.ContactService, picker Picker, reader *bufio.Reader, out io.Writer) *App {
	return &App{
		auth:     auth,
		contacts: contacts,
		picker:   picker,
		log:      logging.Nop{},
		reader:   reader,
		out:      out,
	}
}

// Run serves metrics when configured and blocks in the REPL until the user
// exits or input ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.metricsAddr != "" && a.metrics != nil {
		go func() {
			if err := a.metrics.Serve(ctx, a.metricsAddr); err != nil {
				a.log.Error(ctx, "metrics listener stopped", "addr", a.metricsAddr, "err", err)
			}
		}()
	}

	fmt.Fprintln(a.out, "Contact book (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func (a *App) isLoggedIn() bool {
	return a.auth.IsAuthed()
}

// status is shown in the prompt.
func (a *App) status() string {
	if sess, ok := a.auth.Session(); ok {
		return sess.Email
	}
	return "guest"
}

var errNotLoggedIn = errors.New("please log in first")

// spinnerInterval is how often busy prints a progress dot.
var spinnerInterval = 200 * time.Millisecond

// busy runs op and prints progress dots while loading reports true.
func (a *App) busy(loading func() bool, op func() error) error {
	done := make(chan error, 1)
	go func() { done <- op() }()

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	dots := false
	for {
		select {
		case err := <-done:
			if dots {
				fmt.Fprintln(a.out)
			}
			return err
		case <-ticker.C:
			if loading() {
				fmt.Fprint(a.out, ".")
				dots = true
			}
		}
	}
}
