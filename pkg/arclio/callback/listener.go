package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
)

const (
	CallbackPath = "/callback"
	HealthPath   = "/health"

	// DefaultTimeout bounds how long a login waits for the browser redirect.
	DefaultTimeout = 120 * time.Second

	queryKey = "callbackQuery"
)

// DefaultPorts are tried in order; the redirect URI registered with the provider
// must allow each of them.
var DefaultPorts = []int{3100, 3101, 3102, 3103, 3104}

// Listener owns one loopback HTTP server for one login attempt. The handler
// goroutines and the goroutine blocked in AwaitResult only share the result,
// which is written once and published by closing captured.
type Listener struct {
	log *zap.SugaredLogger

	mu     sync.Mutex
	state  State
	port   int
	server *http.Server

	captureOnce sync.Once
	captured    chan struct{}
	result      Result

	closeOnce sync.Once
	closed    chan struct{}
}

var ginModeOnce sync.Once

func NewListener(log *zap.SugaredLogger) *Listener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ginModeOnce.Do(func() {
		if gin.Mode() == gin.DebugMode {
			gin.SetMode(gin.ReleaseMode)
		}
	})
	return &Listener{
		log:      log,
		captured: make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// Start binds the first free port of ports on 127.0.0.1 (DefaultPorts when empty)
// and serves in the background.
func (l *Listener) Start(ports []int) (int, error) {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return 0, fmt.Errorf("callback listener already %s", l.state)
	}

	var ln net.Listener
	for _, port := range ports {
		candidate, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			l.log.Debugw("Callback port unavailable", "port", port, "error", err)
			continue
		}
		ln = candidate
		l.port = port
		break
	}
	if ln == nil {
		return 0, &NoAvailablePortError{Ports: append([]int(nil), ports...)}
	}

	l.server = &http.Server{
		Handler:           l.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	l.state = StateListening
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Warnw("Callback listener stopped", "error", err)
		}
	}(l.server)

	l.log.Debugw("Callback listener started", "port", l.port)
	return l.port, nil
}

func (l *Listener) Port() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port
}

// CallbackURL is the redirect URI to register in the authorize request. It is only
// meaningful after Start.
func (l *Listener) CallbackURL() string {
	return fmt.Sprintf("http://localhost:%d%s", l.Port(), CallbackPath)
}

func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// IsClosed reports whether the server has been shut down.
func (l *Listener) IsClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

// AwaitResult blocks until a redirect has been recorded, the timeout elapses or ctx
// is done. On timeout the listener is closed and ErrCallbackTimeout returned.
func (l *Listener) AwaitResult(ctx context.Context, timeout time.Duration) (Result, error) {
	if l.State() == StateIdle {
		return Result{}, ErrNotStarted
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.captured:
		return l.result, nil
	default:
	}

	select {
	case <-l.captured:
		return l.result, nil
	case <-timer.C:
		l.setState(StateTimedOut)
		_ = l.Close()
		return Result{}, ErrCallbackTimeout
	case <-l.closed:
		return Result{}, ErrListenerClosed
	case <-ctx.Done():
		_ = l.Close()
		return Result{}, ctx.Err()
	}
}

// Close shuts the server down, aborting any in-flight page delivery. It is safe to
// call repeatedly and in any state.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		srv := l.server
		if l.state == StateIdle || l.state == StateListening {
			l.state = StateClosed
		}
		l.mu.Unlock()

		if srv != nil {
			if cerr := srv.Close(); cerr != nil && !errors.Is(cerr, http.ErrServerClosed) {
				err = cerr
			}
		}
		close(l.closed)
		l.log.Debugw("Callback listener closed", "port", l.Port())
	})
	return err
}

func (l *Listener) setState(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
}

// record stores r unless a result was already recorded. It reports whether r won.
func (l *Listener) record(r Result) bool {
	won := false
	l.captureOnce.Do(func() {
		l.result = r
		l.mu.Lock()
		if l.state == StateListening {
			l.state = StateCaptured
		}
		l.mu.Unlock()
		close(l.captured)
		won = true
	})
	return won
}

// Handler returns the HTTP handler serving the callback and health endpoints.
func (l *Listener) Handler() http.Handler {
	engine := gin.New()
	logger := l.log.Desugar()
	engine.Use(
		stashQuery,
		ginzap.Ginzap(logger, time.RFC3339, true),
		ginzap.RecoveryWithZap(logger, false),
	)
	engine.GET(CallbackPath, l.handleCallback)
	engine.GET(HealthPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return engine
}

// stashQuery keeps the real query for the handlers and hides code and state from
// the request log.
func stashQuery(c *gin.Context) {
	query := c.Request.URL.Query()
	c.Set(queryKey, query)
	if query.Has("code") || query.Has("state") {
		redacted := url.Values{}
		for k, v := range query {
			redacted[k] = v
		}
		for _, k := range []string{"code", "state"} {
			if redacted.Has(k) {
				redacted.Set(k, "REDACTED")
			}
		}
		c.Request.URL.RawQuery = redacted.Encode()
	}
	c.Next()
}

func (l *Listener) handleCallback(c *gin.Context) {
	query, _ := c.MustGet(queryKey).(url.Values)

	if errCode := query.Get("error"); errCode != "" {
		res := Result{Error: errCode, ErrorDescription: query.Get("error_description")}
		l.capture(res)
		c.Render(http.StatusOK, failurePage(res))
		return
	}

	code := query.Get("code")
	if code == "" {
		res := Result{Error: "missing_code", ErrorDescription: "Authorization code not received"}
		l.capture(res)
		c.Render(http.StatusBadRequest, failurePage(res))
		return
	}

	l.capture(Result{Code: code, State: query.Get("state")})
	c.Render(http.StatusOK, render.HTML{Template: pageTemplates, Name: pageSuccess})
}

func (l *Listener) capture(res Result) {
	if l.record(res) {
		l.log.Debugw("Callback result recorded", "failed", res.Failed())
		return
	}
	l.log.Debugw("Ignoring repeated callback", "failed", res.Failed())
}

func failurePage(res Result) render.HTML {
	return render.HTML{
		Template: pageTemplates,
		Name:     pageFailure,
		Data:     pageData{Error: res.Error, Description: res.ErrorDescription},
	}
}
