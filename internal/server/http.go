package server

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/opsdrop/logzip/internal/archive"
	"github.com/opsdrop/logzip/internal/config"
	"github.com/opsdrop/logzip/internal/discovery"
	"github.com/opsdrop/logzip/internal/network"
	"github.com/opsdrop/logzip/internal/protocol"
)

// Server serves a snapshot of the configured log directory as a single
// streamed zip archive. Each request runs its own synchronous walk with
// its own temporary files; requests share nothing, so no locking.
type Server struct {
	Config config.Config
	// Logger receives request and per-file events. Nil means discard.
	Logger *slog.Logger

	ip         net.IP
	port       int
	httpServer *http.Server
	advertiser *discovery.Advertiser
}

// tcpKeepAliveListener sets TCP keepalive on accepted connections and
// disables Nagle's algorithm so archive chunks go out immediately.
type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	tc.SetNoDelay(true)
	return tc, nil
}

// Start binds the listener and begins serving. It returns the URL the
// archive can be fetched from.
func (s *Server) Start() (string, error) {
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ip, err := network.DiscoverLANIP(s.Config.Interface)
	if err != nil {
		return "", err
	}
	s.ip = ip

	mux := http.NewServeMux()
	mux.HandleFunc(protocol.DownloadPath, s.handleDownload)

	s.httpServer = &http.Server{
		ReadTimeout:       protocol.ReadTimeout,
		ReadHeaderTimeout: protocol.ReadHeaderTimeout,
		IdleTimeout:       protocol.IdleTimeout,
		// No WriteTimeout: the archive takes as long as it takes, and
		// its size is unknown up front. Bounding request duration is
		// the host's concern, not ours.
		MaxHeaderBytes: 1 << 20,
		Handler:        mux,
		// Plain HTTP/1.1; disable the h2 upgrade path.
		TLSNextProto: make(map[string]func(*http.Server, *tls.Conn, http.Handler)),
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", ip.String(), s.Config.Port))
	if err != nil {
		return "", err
	}
	tcpListener, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return "", fmt.Errorf("expected TCP listener, got %T", ln)
	}
	addr, ok := tcpListener.Addr().(*net.TCPAddr)
	if !ok {
		_ = tcpListener.Close()
		return "", fmt.Errorf("unexpected listener address %v", tcpListener.Addr())
	}
	s.port = addr.Port

	go func() {
		_ = s.httpServer.Serve(tcpKeepAliveListener{tcpListener})
	}()

	if s.Config.Advertise {
		instance := fmt.Sprintf("logzip-%d", s.port)
		adv, err := discovery.Advertise(instance, s.ip, s.port)
		if err != nil {
			s.Logger.Warn("mDNS advertise failed", "error", err)
		} else {
			s.advertiser = adv
		}
	}

	return s.URL(), nil
}

// URL returns the address the archive is served at.
func (s *Server) URL() string {
	return fmt.Sprintf("http://%s:%d%s", s.ip.String(), s.port, protocol.DownloadPath)
}

// Port returns the bound port. Valid after Start.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != protocol.DownloadPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.Logger.Info("logfiles requested", "remote", r.RemoteAddr)

	// Validate before touching the response stream: these are the only
	// failures that can still surface as a clean HTTP error.
	logsDir, err := s.Config.LogsDir()
	if err != nil {
		s.Logger.Error("configuration invalid", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s", protocol.ArchiveName))

	sink := archive.NewZipStream(w)
	archiver := &archive.Archiver{
		Sink:      sink,
		Snapshots: &archive.Snapshotter{},
		Logger:    s.Logger,
	}
	count, err := archiver.Archive(logsDir)
	if err != nil {
		// Headers are long gone; the client sees a truncated archive.
		// Nothing to do but log and drop the connection.
		s.Logger.Error("archive aborted", "error", err, "archived", count)
		return
	}
	if err := sink.Finish(); err != nil {
		s.Logger.Error("could not finalize archive", "error", err)
		return
	}
	s.Logger.Info("zipped and served logfiles", "count", count)
}

// Shutdown stops the server and withdraws the mDNS registration.
func (s *Server) Shutdown() error {
	if s.advertiser != nil {
		s.advertiser.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Close()
}
