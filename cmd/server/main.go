package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/neighborly/go-neighborhood-api/internal/app/controllers"
	"github.com/neighborly/go-neighborhood-api/internal/app/repositories"
	"github.com/neighborly/go-neighborhood-api/internal/app/services"
	"github.com/neighborly/go-neighborhood-api/internal/config"
	"github.com/neighborly/go-neighborhood-api/internal/platform/database"
	httpPlatform "github.com/neighborly/go-neighborhood-api/internal/platform/http"
	"github.com/neighborly/go-neighborhood-api/pkg/eventlog"
	"github.com/neighborly/go-neighborhood-api/pkg/logger"
	storagepkg "github.com/neighborly/go-neighborhood-api/pkg/storage"
	minioStorage "github.com/neighborly/go-neighborhood-api/pkg/storage/minio"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	rootLog := logger.New(cfg.Env)
	appLog := logger.Component(rootLog, "app")

	appLog.WithField("driver", cfg.DBDriver).Info("starting")

	var objectStorage storagepkg.Service
	if cfg.Storage.Enabled() {
		store, err := minioStorage.New(context.Background(), minioStorage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLog.WithError(err).Fatal("storage initialization error")
		}
		objectStorage = store
		appLog.WithField("bucket", cfg.Storage.Bucket).Info("object storage enabled")
	}

	var (
		userRepo          repositories.UserRepository
		communityRepo     repositories.CommunityRepository
		communityMemsRepo repositories.CommunityMembershipRepository
		groupRepo         repositories.GroupRepository
		groupMemsRepo     repositories.GroupMembershipRepository
		listingRepo       repositories.ListingRepository
		visibilityRepo    repositories.ListingVisibilityRepository
		dbClose           func() error
	)

	switch cfg.DBDriver {
	case "postgres":
		gormDB, sqlDB, err := database.Open(cfg.DatabaseDSN)
		if err != nil {
			appLog.WithError(err).Fatal("database connection error")
		}
		dbClose = sqlDB.Close

		userRepo, err = repositories.NewGormUserRepo(gormDB)
		if err != nil {
			appLog.WithError(err).Fatal("user repository initialization error")
		}
		communityRepo, err = repositories.NewPostgresCommunityRepo(sqlDB)
		if err != nil {
			appLog.WithError(err).Fatal("community repository initialization error")
		}
		communityMemsRepo, err = repositories.NewPostgresCommunityMembershipRepo(sqlDB)
		if err != nil {
			appLog.WithError(err).Fatal("community membership repository initialization error")
		}
		groupRepo, err = repositories.NewPostgresGroupRepo(sqlDB)
		if err != nil {
			appLog.WithError(err).Fatal("group repository initialization error")
		}
		groupMemsRepo, err = repositories.NewPostgresGroupMembershipRepo(sqlDB)
		if err != nil {
			appLog.WithError(err).Fatal("group membership repository initialization error")
		}
		listingRepo, err = repositories.NewPostgresListingRepo(sqlDB)
		if err != nil {
			appLog.WithError(err).Fatal("listing repository initialization error")
		}
		visibilityRepo, err = repositories.NewPostgresListingVisibilityRepo(sqlDB)
		if err != nil {
			appLog.WithError(err).Fatal("visibility repository initialization error")
		}
	default:
		userRepo = repositories.NewInMemoryUserRepo()
		communityRepo = repositories.NewInMemoryCommunityRepo()
		communityMemsRepo = repositories.NewInMemoryCommunityMembershipRepo()
		groupRepo = repositories.NewInMemoryGroupRepo()
		groupMemsRepo = repositories.NewInMemoryGroupMembershipRepo()
		listingRepo = repositories.NewInMemoryListingRepo()
		visibilityRepo = repositories.NewInMemoryListingVisibilityRepo()
	}

	if dbClose != nil {
		defer func() {
			if err := dbClose(); err != nil {
				appLog.WithError(err).Error("error closing database")
			}
		}()
	}

	var audit *eventlog.Recorder
	if cfg.AuditDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.AuditDBPath), 0o755); err != nil {
			appLog.WithError(err).Warn("audit directory unavailable, continuing without audit log")
		} else {
			rec, err := eventlog.Open(cfg.AuditDBPath, logger.Component(rootLog, "audit"))
			if err != nil {
				appLog.WithError(err).Warn("audit log unavailable, continuing without it")
			} else {
				audit = rec
				defer audit.Close()
			}
		}
	}

	accessSvc := services.NewAccessService(listingRepo, visibilityRepo, communityMemsRepo, groupMemsRepo)
	communitySvc := services.NewCommunityService(communityRepo, communityMemsRepo, groupRepo, groupMemsRepo, listingRepo, visibilityRepo, audit, cfg.PublicBaseURL)
	groupSvc := services.NewGroupService(groupRepo, groupMemsRepo, communityRepo, communityMemsRepo, listingRepo, visibilityRepo, audit, cfg.PublicBaseURL)
	listingSvc := services.NewListingService(listingRepo, visibilityRepo, communityRepo, communityMemsRepo, groupRepo, groupMemsRepo, userRepo, accessSvc, objectStorage, audit, logger.Component(rootLog, "listings"))

	communityCtrl := controllers.NewCommunityController(communitySvc)
	groupCtrl := controllers.NewGroupController(groupSvc)
	listingCtrl := controllers.NewListingController(listingSvc)

	router := httpPlatform.NewRouter(httpPlatform.RouterConfig{
		CommunityCtrl: communityCtrl,
		GroupCtrl:     groupCtrl,
		ListingCtrl:   listingCtrl,
		ResolveUser: func(ctx context.Context, token string) (string, error) {
			u, err := userRepo.GetByAPIToken(ctx, token)
			if err != nil {
				return "", err
			}
			return u.ID, nil
		},
		Logger: logger.Component(rootLog, "http"),
	})

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		appLog.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	appLog.Info("shutting down...")
	_ = srv.Shutdown(context.Background())
}
