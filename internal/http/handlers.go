package http

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/hydrafund/hydrafund-node/internal/tx"
	"github.com/hydrafund/hydrafund-node/internal/types"
	log "github.com/sirupsen/logrus"
)

type nonceRequest struct {
	Address string `json:"address" binding:"required"`
}

func (hs *HTTPServer) handleAuthNonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nonce, err := hs.authSvc.IssueNonce(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

type verifyRequest struct {
	Address    string `json:"address" binding:"required"`
	WalletName string `json:"wallet_name" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PublicKey  string `json:"public_key" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

func (hs *HTTPServer) handleAuthVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	publicKey, err := hex.DecodeString(req.PublicKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "public_key is not hex"})
		return
	}
	signature, err := hex.DecodeString(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature is not hex"})
		return
	}
	token, err := hs.authSvc.Verify(req.Address, req.WalletName, req.Message, publicKey, signature)
	if err != nil {
		log.Debugf("Auth verify rejected for %s: %v", req.Address, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "challenge verification failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type connectRequest struct {
	WalletName string `json:"wallet_name" binding:"required"`
}

// handleWalletConnect enables a wallet through the bridge. Anonymous calls
// run the challenge flow and get a token back; calls carrying a valid
// bearer token reattach the wallet to that session instead.
func (hs *HTTPServer) handleWalletConnect(c *gin.Context) {
	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	existing := optionalSession(c, hs.authSvc)
	token, err := hs.walletMgr.Connect(c.Request.Context(), existing, req.WalletName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp := gin.H{"session": hs.walletMgr.Session()}
	if token != "" {
		resp["token"] = token
	}
	c.JSON(http.StatusOK, resp)
}

// handleWalletSession reconciles the live wallet against the caller's
// session before reporting it, so a restarted backend reattaches silently.
func (hs *HTTPServer) handleWalletSession(c *gin.Context) {
	hs.walletMgr.SyncWithSession(c.Request.Context(), sessionFrom(c))
	c.JSON(http.StatusOK, gin.H{"session": hs.walletMgr.Session()})
}

func (hs *HTTPServer) handleWalletDisconnect(c *gin.Context) {
	hs.walletMgr.Disconnect()
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (hs *HTTPServer) handleListCampaigns(c *gin.Context) {
	var (
		campaigns []db.Campaign
		err       error
	)
	if creator := c.Query("creator"); creator != "" {
		campaigns, err = hs.campaigns.ListByCreator(creator)
	} else {
		campaigns, err = hs.campaigns.List()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list campaigns"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

func (hs *HTTPServer) handleGetCampaign(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
		return
	}
	record, err := hs.campaigns.Get(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	c.JSON(http.StatusOK, record)
}

type createCampaignRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	Destination  string    `json:"destination" binding:"required"`
	TargetAmount uint64    `json:"target_amount" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
}

func (hs *HTTPServer) handleCreateCampaign(c *gin.Context) {
	session := sessionFrom(c)
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record := db.Campaign{
		Title:        req.Title,
		Description:  req.Description,
		Creator:      session.Address,
		Destination:  req.Destination,
		TargetAmount: req.TargetAmount,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	}
	if err := hs.campaigns.Create(&record); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (hs *HTTPServer) handleDeleteCampaign(c *gin.Context) {
	session := sessionFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
		return
	}
	if err := hs.campaigns.Delete(uint(id), session.Address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (hs *HTTPServer) handleActivateCampaign(c *gin.Context) {
	session := sessionFrom(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
		return
	}
	if err := hs.campaigns.Activate(uint(id), session.Address); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

func (hs *HTTPServer) handleHeadStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": hs.orchestrator.Status(c.Request.Context())})
}

func (hs *HTTPServer) handleHeadOpen(c *gin.Context) {
	if err := hs.orchestrator.Open(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": hs.st.GetHeadStatus()})
}

func (hs *HTTPServer) handleHeadFinalize(c *gin.Context) {
	if err := hs.orchestrator.Finalize(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": hs.st.GetHeadStatus()})
}

type commitRequest struct {
	Utxos []types.Utxo `json:"utxos" binding:"required"`
}

// handleHeadCommit drafts the layer-1 commit transaction for the caller's
// chosen outputs; the wallet signs and submits the result.
func (hs *HTTPServer) handleHeadCommit(c *gin.Context) {
	var req commitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	draft, err := hs.orchestrator.Commit(c.Request.Context(), req.Utxos)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsigned_tx": hex.EncodeToString(draft)})
}

type submitRequest struct {
	SignedTx string `json:"signed_tx" binding:"required"`
}

func (hs *HTTPServer) handleHeadSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	signedTx, err := hex.DecodeString(req.SignedTx)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signed_tx is not hex"})
		return
	}
	if err := hs.orchestrator.Submit(c.Request.Context(), signedTx); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

type contributeRequest struct {
	Quantity    uint64 `json:"quantity" binding:"required"`
	Required    uint64 `json:"required" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

func (hs *HTTPServer) handleBuildContribute(c *gin.Context) {
	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	draft, err := hs.composer.Contribute(c.Request.Context(), req.Quantity, req.Required, req.Destination)
	hs.respondDraft(c, draft, err)
}

func (hs *HTTPServer) handleBuildDisburse(c *gin.Context) {
	draft, err := hs.composer.Disburse(c.Request.Context())
	hs.respondDraft(c, draft, err)
}

type lockRequest struct {
	Quantity uint64 `json:"quantity" binding:"required"`
}

func (hs *HTTPServer) handleBuildLock(c *gin.Context) {
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	draft, err := hs.composer.Lock(c.Request.Context(), req.Quantity)
	hs.respondDraft(c, draft, err)
}

func (hs *HTTPServer) handleBuildUnlock(c *gin.Context) {
	draft, err := hs.composer.Unlock(c.Request.Context())
	hs.respondDraft(c, draft, err)
}

func (hs *HTTPServer) handleBuildRemove(c *gin.Context) {
	draft, err := hs.composer.Remove(c.Request.Context())
	hs.respondDraft(c, draft, err)
}

func (hs *HTTPServer) respondDraft(c *gin.Context, draft *tx.Draft, err error) {
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	raw, err := draft.Bytes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "draft serialization failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsigned_tx": hex.EncodeToString(raw)})
}
