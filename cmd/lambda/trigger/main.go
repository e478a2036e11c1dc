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

	svc, err := bootstrap.PipelineService(context.Background(), cfg)
	if err != nil {
		log.Fatalf("init pipeline service: %v", err)
	}

	lambda.Start(lambdaadapter.NewTriggerHandler(svc).Handle)
}
