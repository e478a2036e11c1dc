package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	log "github.com/sirupsen/logrus"

	lambdaadapter "caption-service/internal/adapters/primary/lambda"
	"caption-service/internal/bootstrap"
	"caption-service/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	bootstrap.InitLogger(cfg.Logger)

	// clients are built once per container and reused across invocations.
	// lambda.Start never returns, so the ledger pool lives as long as the container.
	svc, _, err := bootstrap.DeployService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init deploy service: %v", err)
	}

	lambda.Start(lambdaadapter.NewDeployHandler(svc).Handle)
}
