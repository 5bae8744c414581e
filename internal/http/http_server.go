package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hydrafund/hydrafund-node/internal/auth"
	"github.com/hydrafund/hydrafund-node/internal/campaign"
	"github.com/hydrafund/hydrafund-node/internal/config"
	"github.com/hydrafund/hydrafund-node/internal/hydra"
	"github.com/hydrafund/hydrafund-node/internal/state"
	"github.com/hydrafund/hydrafund-node/internal/tx"
	"github.com/hydrafund/hydrafund-node/internal/wallet"
	log "github.com/sirupsen/logrus"
)

type HTTPServer struct {
	st           *state.State
	authSvc      *auth.Service
	campaigns    *campaign.Service
	orchestrator *hydra.Orchestrator
	composer     *tx.Composer
	walletMgr    *wallet.Manager
}

func NewHTTPServer(st *state.State, authSvc *auth.Service, campaigns *campaign.Service, orchestrator *hydra.Orchestrator, composer *tx.Composer, walletMgr *wallet.Manager) *HTTPServer {
	return &HTTPServer{
		st:           st,
		authSvc:      authSvc,
		campaigns:    campaigns,
		orchestrator: orchestrator,
		composer:     composer,
		walletMgr:    walletMgr,
	}
}

func (hs *HTTPServer) Start(ctx context.Context) {
	r := gin.Default()

	v1 := r.Group("/api/v1")
	v1.GET("/health", handleHealth)
	v1.POST("/auth/nonce", hs.handleAuthNonce)
	v1.POST("/auth/verify", hs.handleAuthVerify)
	v1.GET("/campaigns", hs.handleListCampaigns)
	v1.GET("/campaigns/:id", hs.handleGetCampaign)
	v1.GET("/head/status", hs.handleHeadStatus)
	v1.POST("/wallet/connect", hs.handleWalletConnect)

	authed := v1.Group("", hs.requireSession)
	authed.GET("/wallet/session", hs.handleWalletSession)
	authed.POST("/wallet/disconnect", hs.handleWalletDisconnect)
	authed.POST("/campaigns", hs.handleCreateCampaign)
	authed.DELETE("/campaigns/:id", hs.handleDeleteCampaign)
	authed.POST("/campaigns/:id/activate", hs.handleActivateCampaign)
	authed.POST("/head/open", hs.handleHeadOpen)
	authed.POST("/head/commit", hs.handleHeadCommit)
	authed.POST("/head/finalize", hs.handleHeadFinalize)
	authed.POST("/head/submit", hs.handleHeadSubmit)
	authed.POST("/tx/contribute", hs.handleBuildContribute)
	authed.POST("/tx/disburse", hs.handleBuildDisburse)
	authed.POST("/tx/lock", hs.handleBuildLock)
	authed.POST("/tx/unlock", hs.handleBuildUnlock)
	authed.POST("/tx/remove", hs.handleBuildRemove)

	addr := ":" + config.AppConfig.HTTPPort
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		log.Infof("HTTP server is running on port %s", config.AppConfig.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown: %v", err)
	}
	log.Info("HTTP server stopped.")
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireSession guards write routes with the bearer session token.
func (hs *HTTPServer) requireSession(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	session, err := hs.authSvc.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
		return
	}
	c.Set("session", session)
	c.Next()
}

// optionalSession parses the bearer token when one is present, returning
// nil for anonymous callers and for tokens that fail to parse.
func optionalSession(c *gin.Context, authSvc *auth.Service) *auth.Session {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return nil
	}
	session, err := authSvc.ParseToken(token)
	if err != nil {
		return nil
	}
	return session
}

func sessionFrom(c *gin.Context) *auth.Session {
	value, ok := c.Get("session")
	if !ok {
		return nil
	}
	session, _ := value.(*auth.Session)
	return session
}
