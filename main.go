package main

import (
	"github.com/stocktribe/stocktribe/config"
	"github.com/stocktribe/stocktribe/models"
	"github.com/stocktribe/stocktribe/routes"
	"github.com/stocktribe/stocktribe/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Prediction{},
		&models.Tribe{},
		&models.TribeMember{},
		&models.ScoreRun{},
	)

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
