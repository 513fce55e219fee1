package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
	"github.com/nvgt/nvgtbuild/internal/watcher"

	_ "embed"
)

//go:embed livereload.html
var liveReloadScript []byte

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
		w.WriteHeader(500)
	},
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Builder regenerates the served html.
type Builder interface {
	Generate(ctx context.Context) error
}

type Server struct {
	sourceDir    string
	htmlDir      string
	port         int
	reloadBroker *Broker
	buildtool    Builder
	metrics      *metrics
	// debounce is how long the source tree must stay quiet before a rebuild.
	debounce time.Duration
}

func NewServer(buildtool Builder, sourceDir, htmlDir string, port int) *Server {
	return &Server{
		sourceDir:    sourceDir,
		htmlDir:      htmlDir,
		port:         port,
		reloadBroker: newBroker(),
		buildtool:    buildtool,
		metrics:      newMetrics(),
		debounce:     500 * time.Millisecond,
	}
}

func (s *Server) TriggerReload() {
	s.reloadBroker.Publish(struct{}{})
}

func (s *Server) rebuild(ctx context.Context) error {
	start := time.Now()
	err := s.buildtool.Generate(ctx)
	s.metrics.observeBuild(start, err)
	if err != nil {
		tlogger.Error("msg", "Documentation build failed", "err", err)
		return err
	}
	tlogger.Info("msg", "Documentation rebuilt", "took", time.Since(start))
	return nil
}

// watch rebuilds once the source tree has been quiet for the debounce delay
// after a change, then reloads the connected browsers.
func (s *Server) watch(ctx context.Context, updates <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
		}
	rootFor:
		for {
			select {
			case <-ctx.Done():
				return
			case <-updates:
				continue
			case <-time.After(s.debounce):
				break rootFor
			}
		}
		if s.rebuild(ctx) == nil {
			s.TriggerReload()
		}
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", s.metrics.handler())
	r.HandleFunc("/__internal/livereload", s.livereloadHandler)
	r.PathPrefix("/").HandlerFunc(s.fileServer(s.htmlDir))
	return r
}

// Start serves the html documentation until ctx is done. With withBuilder the
// documentation is built first and rebuilt whenever the sources change.
func (s *Server) Start(ctx context.Context, withBuilder bool) error {
	go s.reloadBroker.Start()
	defer s.reloadBroker.Stop()

	if withBuilder {
		if err := s.rebuild(ctx); err != nil {
			return err
		}
		updates, err := watcher.StartWatcher(ctx, s.sourceDir)
		if err != nil {
			return err
		}
		go s.watch(ctx, updates)
	}

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(s.port),
		Handler: s.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	// We use println here so the address can be copied or opened directly from the terminal
	fmt.Println("Listening on http://localhost:" + strconv.Itoa(s.port))

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func internalError(w http.ResponseWriter, msg string, err error) {
	w.WriteHeader(500)
	w.Write([]byte("Internal error: " + msg + ": " + err.Error()))
}

// resolve finds the file served for a url path: the file itself, the path
// with .html appended, or the index.html of a folder.
func resolve(dir, upath string) (string, error) {
	const indexPage = "index.html"

	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean(upath)))
	for _, candidate := range []string{fullName, fullName + ".html", filepath.Join(fullName, indexPage)} {
		info, err := os.Stat(candidate)
		if err != nil {
			if !os.IsNotExist(err) {
				return "", err
			}
			continue
		}
		if !info.IsDir() {
			return candidate, nil
		}
	}
	return "", os.ErrNotExist
}

func (s *Server) fileServer(dir string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		upath := r.URL.Path
		if !strings.HasPrefix(upath, "/") {
			upath = "/" + upath
		}

		fullName, err := resolve(dir, upath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.WriteHeader(404)
				w.Write([]byte("404 page not found"))
				return
			}
			internalError(w, "can't open file", err)
			return
		}

		content, err := os.Open(fullName)
		if err != nil {
			internalError(w, "can't open file", err)
			return
		}
		defer content.Close()

		ctype := mime.TypeByExtension(filepath.Ext(fullName))
		if ctype == "" {
			// read a chunk to decide between utf-8 text and binary
			var buf [512]byte
			n, _ := io.ReadFull(content, buf[:])
			ctype = http.DetectContentType(buf[:n])
			if _, err := content.Seek(0, io.SeekStart); err != nil {
				internalError(w, "can't seek file", err)
				return
			}
		}
		w.Header().Set("Content-Type", ctype)
		io.Copy(w, content)
		if strings.HasPrefix(ctype, "text/html") {
			if _, err := w.Write(liveReloadScript); err != nil {
				tlogger.Error("msg", "could not live reload", "error", err)
			}
		}
	}
}

func (s *Server) livereloadHandler(w http.ResponseWriter, r *http.Request) {
	tlogger.Debug("msg", "WS Established")

	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()

	s.metrics.reloadClients.Inc()
	defer s.metrics.reloadClients.Dec()

	waitCh := s.reloadBroker.Subscribe()
	defer s.reloadBroker.Unsubscribe(waitCh)
	select {
	case <-waitCh:
	case <-r.Context().Done():
		return
	}
	err = c.WriteMessage(websocket.TextMessage, []byte("reload"))
	if err != nil {
		tlogger.Warn("msg", "Reload socket error", "error", err)
	}
}
