package network

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/luca-patrignani/proof-of-play/dispatch"
	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/transaction"
)

const defaultEventsLimit = 100

// Server serves the node API.
type Server struct {
	dispatcher  *dispatch.Dispatcher
	logger      *slog.Logger
	corsOrigins []string
	tlsHost     string
	cert        *tls.Certificate
	certPEM     []byte
	httpServer  *http.Server
	upgrader    websocket.Upgrader
}

type ServerOption func(Server) Server

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s Server) Server {
		s.logger = logger
		return s
	}
}

// WithCORSOrigins restricts cross-origin requests to origins. Without it
// every origin is allowed.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s Server) Server {
		s.corsOrigins = origins
		return s
	}
}

// WithSelfSignedTLS serves HTTPS with a certificate generated for the host
// of addr and for localhost.
func WithSelfSignedTLS(addr string) ServerOption {
	return func(s Server) Server {
		s.tlsHost = addr
		return s
	}
}

func NewServer(d *dispatch.Dispatcher, opts ...ServerOption) (*Server, error) {
	s := Server{
		dispatcher: d,
		logger:     slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		s = opt(s)
	}
	if s.tlsHost != "" {
		cert, pemBytes, err := GenerateSelfSignedCert(s.tlsHost)
		if err != nil {
			return nil, fmt.Errorf("generate certificate: %w", err)
		}
		s.cert = &cert
		s.certPEM = pemBytes
	}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &s, nil
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// CertificatePEM returns the self-signed certificate, nil without TLS.
func (s *Server) CertificatePEM() []byte {
	return s.certPEM
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	if s.cert != nil {
		l = tls.NewListener(l, &tls.Config{
			Certificates: []tls.Certificate{*s.cert},
			MinVersion:   tls.VersionTLS12,
		})
	}
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	if len(s.corsOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: s.corsOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	} else {
		router.Use(cors.Default())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/calls", func(c *gin.Context) {
		c.JSON(http.StatusOK, dispatch.Calls())
	})
	router.POST("/tx", s.submit)
	router.POST("/tx/validate", s.validate)
	router.GET("/accounts/:account/balance", s.balance)
	router.GET("/events", s.events)
	router.GET("/events/ws", s.stream)
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// statusFor maps a dispatch error to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, transaction.ErrMissingSignature),
		errors.Is(err, transaction.ErrBadSigner),
		errors.Is(err, transaction.ErrBadSignature):
		return http.StatusUnauthorized
	case errors.Is(err, dispatch.ErrUnknownCall), pop.KindOf(err) != pop.KindNone:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) submit(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed transaction: " + err.Error()})
		return
	}
	receipt, err := s.dispatcher.Dispatch(c.Request.Context(), &tx)
	c.JSON(statusFor(err), receipt)
}

// ValidateResponse is the body returned by POST /tx/validate.
type ValidateResponse struct {
	Caller pop.AccountID `json:"caller,omitempty"`
	Valid  bool          `json:"valid"`
	Reason pop.ErrorKind `json:"reason,omitempty"`
	Error  string        `json:"error,omitempty"`
}

func (s *Server) validate(c *gin.Context) {
	var tx transaction.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed transaction: " + err.Error()})
		return
	}
	caller, err := s.dispatcher.Validate(&tx)
	resp := ValidateResponse{Caller: caller, Valid: err == nil, Reason: pop.KindOf(err)}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		if resp.Reason == pop.KindNone {
			status = statusFor(err)
		}
	}
	c.JSON(status, resp)
}

// BalanceResponse is the body returned by GET /accounts/:account/balance.
type BalanceResponse struct {
	Account pop.AccountID `json:"account"`
	Balance pop.Balance   `json:"balance"`
}

func (s *Server) balance(c *gin.Context) {
	account := pop.AccountID(c.Param("account"))
	b, err := s.dispatcher.State().BalanceOf(c.Request.Context(), account)
	if err != nil {
		s.logger.Error("failed to read balance", "account", account, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Account: account, Balance: b})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + key)
	}
	return v, nil
}

func (s *Server) events(c *gin.Context) {
	from, err := queryInt(c, "from", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := queryInt(c, "limit", defaultEventsLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	blocks, err := s.dispatcher.State().Events(c.Request.Context(), from, limit)
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, blocks)
}

// stream pushes every newly committed block to the websocket client until it
// disconnects.
func (s *Server) stream(c *gin.Context) {
	// Subscribed before the handshake completes so the client sees every
	// block committed after Dial returns.
	blocks, cancel := s.dispatcher.Feed().Subscribe()
	defer cancel()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b, ok := <-blocks:
			if !ok {
				return
			}
			if err := conn.WriteJSON(b); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
