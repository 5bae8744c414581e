package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hydrafund/hydrafund-node/internal/auth"
	"github.com/hydrafund/hydrafund-node/internal/campaign"
	"github.com/hydrafund/hydrafund-node/internal/config"
	"github.com/hydrafund/hydrafund-node/internal/db"
	"github.com/hydrafund/hydrafund-node/internal/http"
	"github.com/hydrafund/hydrafund-node/internal/hydra"
	"github.com/hydrafund/hydrafund-node/internal/provider"
	"github.com/hydrafund/hydrafund-node/internal/state"
	"github.com/hydrafund/hydrafund-node/internal/tx"
	"github.com/hydrafund/hydrafund-node/internal/wallet"
	log "github.com/sirupsen/logrus"
)

const campaignSweepInterval = 10 * time.Minute

type Application struct {
	DatabaseManager *db.DatabaseManager
	State           *state.State
	AuthService     *auth.Service
	WalletManager   *wallet.Manager
	NodeClient      *hydra.NodeClient
	Orchestrator    *hydra.Orchestrator
	Composer        *tx.Composer
	CampaignService *campaign.Service
	HTTPServer      *http.HTTPServer
}

func NewApplication() *Application {
	config.InitConfig()

	validator, err := tx.LoadValidator(config.AppConfig.ScriptFile, config.AppConfig.ScriptTitle)
	if err != nil {
		log.Fatalf("Failed to load validator script: %v", err)
	}

	dbm := db.NewDatabaseManager()
	st := state.InitializeState(dbm)
	authSvc := auth.NewService(dbm, config.AppConfig.AuthJwtSecret,
		config.AppConfig.AuthTokenTTL, config.AppConfig.AuthNonceTTL)

	connector := wallet.NewRemoteConnector(config.AppConfig.WalletBridgeURL)
	walletMgr := wallet.NewManager(connector, authSvc, dbm, st)

	nodeClient := hydra.NewNodeClient(config.AppConfig.HydraNodeURL, st)
	orchestrator := hydra.NewOrchestrator(nodeClient, st, config.AppConfig.HeadWaitTimeout)

	providerClient := provider.NewBlockfrostClient(config.AppConfig.ProviderURL, config.AppConfig.ProviderProjectID)
	composer := tx.NewComposer(providerClient, walletMgr, nodeClient, validator,
		config.AppConfig.ContractAddress, config.AppConfig.NetworkID, config.AppConfig.MinCollateral)

	campaignSvc := campaign.NewService(dbm)
	httpServer := http.NewHTTPServer(st, authSvc, campaignSvc, orchestrator, composer, walletMgr)

	return &Application{
		DatabaseManager: dbm,
		State:           st,
		AuthService:     authSvc,
		WalletManager:   walletMgr,
		NodeClient:      nodeClient,
		Orchestrator:    orchestrator,
		Composer:        composer,
		CampaignService: campaignSvc,
		HTTPServer:      httpServer,
	}
}

func (app *Application) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.HTTPServer.Start(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweepCampaigns(ctx)
	}()

	// Best effort; the node may come up after us, GetStatus reconnects.
	if err := app.NodeClient.Connect(ctx); err != nil {
		log.Warnf("Hydra node not reachable yet: %v", err)
	}

	<-stop
	log.Info("Receiving exit signal...")

	cancel()

	wg.Wait()
	log.Info("Server stopped")
}

// sweepCampaigns expires active campaigns past their funding window.
func (app *Application) sweepCampaigns(ctx context.Context) {
	ticker := time.NewTicker(campaignSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.CampaignService.ExpireOverdue(); err != nil {
				log.Warnf("Campaign expiry sweep failed: %v", err)
			}
		}
	}
}

func main() {
	app := NewApplication()
	app.Run()
}
