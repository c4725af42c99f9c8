// Package server provides the arcbot Gin-based HTTP surfaces.
// Routes are split into two groups:
//   - Control-plane (port 6677): JWT-protected; operator queries.
//   - Data-plane   (port 1616): agent-token-protected; the gateway transport
//     reports shard heartbeats and cache state and forwards command invocations.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vesaa/arcbot/internal/commands"
	arcerrors "github.com/vesaa/arcbot/internal/errors"
	"github.com/vesaa/arcbot/internal/gateway"
	"github.com/vesaa/arcbot/internal/latency"
)

// Options configures a Server.
type Options struct {
	JWTSecret  string
	AgentToken string
	AdminUser  string
	AdminPass  string

	Shards   *gateway.ShardManager
	Cache    *gateway.Cache
	Commands *commands.Handler
	Prefixes commands.PrefixResolver

	// CommandRate and CommandBurst bound command invocations per second.
	CommandRate  float64
	CommandBurst int

	Logger *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server holds the state shared by both route groups.
type Server struct {
	opts      Options
	jwtSecret []byte
	passHash  []byte
	limiter   *rate.Limiter
	log       *zap.Logger
}

// New creates a Server. The admin password is hashed once here and only the
// hash is kept.
func New(opts Options) (*Server, error) {
	if opts.Shards == nil || opts.Cache == nil || opts.Commands == nil || opts.Prefixes == nil {
		return nil, fmt.Errorf("server: Shards, Cache, Commands and Prefixes are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	hash, err := hashPassword(opts.AdminPass)
	if err != nil {
		return nil, err
	}
	opts.AdminPass = ""

	limit := rate.Inf
	if opts.CommandRate > 0 {
		limit = rate.Limit(opts.CommandRate)
	}
	burst := opts.CommandBurst
	if burst < 1 {
		burst = 1
	}

	return &Server{
		opts:      opts,
		jwtSecret: []byte(opts.JWTSecret),
		passHash:  hash,
		limiter:   rate.NewLimiter(limit, burst),
		log:       opts.Logger.Named("server"),
	}, nil
}

// RegisterControlRoutes wires up the control-plane API on the given engine.
// Call this on the engine bound to port 6677.
//
//	Public:   POST /api/login, GET /api/health
//	Protected (JWT): shard latencies, cache stats, guild prefix lookup
func (s *Server) RegisterControlRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", s.handleLogin)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": s.opts.Now().UTC()})
	})

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", s.JWTMiddleware())
	{
		auth.GET("/shards", s.handleShardList)
		auth.GET("/cache", s.handleCacheStats)
		auth.GET("/guilds/:id/prefix", s.handleGuildPrefix)
	}
}

// RegisterDataRoutes wires up the data-plane API on the given engine.
// Call this on the engine bound to port 1616.
// All /api routes require a valid Bearer agent token.
func (s *Server) RegisterDataRoutes(r *gin.Engine) {
	api := r.Group("/api", s.AgentTokenMiddleware())
	{
		api.PUT("/shards/:id", s.handleShardRegister)
		api.DELETE("/shards/:id", s.handleShardRemove)
		api.POST("/shards/:id/heartbeat", s.handleHeartbeat)
		api.PUT("/cache", s.handleCacheReport)
		api.PUT("/guilds/:id", s.handleGuildUpsert)
		api.DELETE("/guilds/:id", s.handleGuildRemove)
		api.POST("/commands", RateLimitMiddleware(s.limiter), s.handleCommand)
	}

	// Data-plane health and metrics (no auth; used by load-balancers and scrapers)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// ── Control-plane handlers ────────────────────────────────────────────────────

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if !s.checkCredentials(body.Username, body.Password) {
		s.log.Info("rejected login", zap.String("username", body.Username), zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenLifetime / time.Second),
		"type":       "Bearer",
	})
}

type shardView struct {
	ShardID     uint32  `json:"shard_id"`
	Measured    bool    `json:"measured"`
	HeartbeatMS float64 `json:"heartbeat_ms"`
	Display     string  `json:"display"`
}

// handleShardList returns every shard's latest heartbeat latency.
func (s *Server) handleShardList(c *gin.Context) {
	samples := s.opts.Shards.Samples()
	out := make([]shardView, 0, len(samples))
	for _, smp := range samples {
		out = append(out, shardView{
			ShardID:     smp.ShardID,
			Measured:    smp.Measured,
			HeartbeatMS: float64(smp.Heartbeat.Microseconds()) / 1000,
			Display:     latency.FormatSample(smp, latency.FormatPrecise),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// handleCacheStats returns the cached counts and identities.
func (s *Server) handleCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.opts.Cache.Stats()})
}

// handleGuildPrefix resolves the prefix in effect for a guild.
func (s *Server) handleGuildPrefix(c *gin.Context) {
	id, ok := guildParam(c)
	if !ok {
		return
	}
	p, err := s.opts.Prefixes.Resolve(c.Request.Context(), &id)
	if err != nil {
		s.log.Error("prefix lookup failed", zap.Uint64("guild", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "code": arcerrors.CodeOf(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"guild_id": strconv.FormatUint(id, 10), "prefix": p})
}

// ── Data-plane handlers ───────────────────────────────────────────────────────

func shardParam(c *gin.Context) (uint32, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shard id"})
		return 0, false
	}
	return uint32(id), true
}

// handleShardRegister records a shard runner that has not heartbeated yet.
func (s *Server) handleShardRegister(c *gin.Context) {
	id, ok := shardParam(c)
	if !ok {
		return
	}
	s.opts.Shards.Register(id)
	c.JSON(http.StatusOK, gin.H{"shard_id": id})
}

// handleShardRemove drops a shard runner.
func (s *Server) handleShardRemove(c *gin.Context) {
	id, ok := shardParam(c)
	if !ok {
		return
	}
	s.opts.Shards.Remove(id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleHeartbeat stores an acknowledged heartbeat round trip.
//
//	POST /api/shards/:id/heartbeat
//	Body: { "latency_us": 42500 }
func (s *Server) handleHeartbeat(c *gin.Context) {
	id, ok := shardParam(c)
	if !ok {
		return
	}
	var body struct {
		LatencyUS *int64 `json:"latency_us" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || *body.LatencyUS < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latency_us must be a non-negative integer"})
		return
	}
	s.opts.Shards.RecordHeartbeat(id, time.Duration(*body.LatencyUS)*time.Microsecond, s.opts.Now())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleCacheReport replaces the client cache with the transport's image.
func (s *Server) handleCacheReport(c *gin.Context) {
	var state gateway.CacheState
	if err := c.ShouldBindJSON(&state); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.opts.Cache.Replace(state)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func guildParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return 0, false
	}
	return id, true
}

// handleGuildUpsert records a joined or updated guild.
//
//	PUT /api/guilds/:id
//	Body: { "channels": 12 }
func (s *Server) handleGuildUpsert(c *gin.Context) {
	id, ok := guildParam(c)
	if !ok {
		return
	}
	var body struct {
		Channels int `json:"channels"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Channels < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channels must be a non-negative integer"})
		return
	}
	s.opts.Cache.SetGuild(id, body.Channels)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleGuildRemove forgets a guild the bot left.
func (s *Server) handleGuildRemove(c *gin.Context) {
	id, ok := guildParam(c)
	if !ok {
		return
	}
	s.opts.Cache.RemoveGuild(id)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// handleCommand runs a command invocation to completion.
//
//	POST /api/commands
//	Body: { "command": "about", "channel_id": "55", "shard_id": 0 }
func (s *Server) handleCommand(c *gin.Context) {
	var inv commands.Invocation
	if err := c.ShouldBindJSON(&inv); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	err := s.opts.Commands.Dispatch(c.Request.Context(), inv)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"id": inv.ID, "ok": true})
	case errors.Is(err, commands.ErrUnknownCommand):
		c.JSON(http.StatusNotFound, gin.H{"id": inv.ID, "error": err.Error()})
	case errors.Is(err, commands.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"id": inv.ID, "error": err.Error()})
	case arcerrors.HasCode(err, arcerrors.ErrCodeMalformedPayload):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"id": inv.ID, "error": err.Error(), "code": arcerrors.CodeOf(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"id": inv.ID, "error": err.Error(), "code": arcerrors.CodeOf(err)})
	}
}
