package main

import (
	"context"
	"os"
	"time"

	"backend/config"
	"backend/controllers"
	"backend/logger"
	"backend/providers"
	"backend/routes"
	"backend/services"
	"backend/utils"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"
)

func main() {
	logger.Init()
	defer logger.Close()

	config.InitDB()

	region := os.Getenv("AWS_REGION")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		logger.Error("unable to load AWS config", zap.Error(err))
		os.Exit(1)
	}

	store := utils.NewS3ArtifactStore(awsCfg, os.Getenv("S3_BUCKET"), os.Getenv("CLOUDFRONT_URL"))

	// Photo recognition chain, fixed priority order.
	chain := providers.NewChain(15*time.Second,
		providers.NewRekognitionProvider(awsCfg),
		providers.NewClarifaiProvider(os.Getenv("CLARIFAI_API_KEY")),
	)

	// Voice parsing chain; the rule-based tier guarantees a result.
	parsers := providers.NewParserChain(30*time.Second,
		providers.NewOpenAIParser(os.Getenv("LLM_API_KEY"), os.Getenv("LLM_BASE_URL"), os.Getenv("LLM_MODEL")),
		providers.NewRuleParser(),
	)

	edamam := services.NewEdamamService(os.Getenv("EDAMAM_APP_ID"), os.Getenv("EDAMAM_APP_KEY"))
	resolver := services.NewNutritionResolver(config.DB, edamam, 10*time.Second)

	hub := services.NewRealtimeHub()
	push := services.NewPushService(config.DB, awsCfg, os.Getenv("SNS_FCM_ARN"))
	events := services.NewCaptureEvents(hub, push)

	captures := services.NewCaptureService(config.DB)
	photo := services.NewPhotoService(captures, chain, resolver, store, events)
	voice := services.NewVoiceService(captures, parsers, resolver, store, events)
	conversion := services.NewConversionService(config.DB, events)

	r := routes.SetupRouter(routes.Deps{
		Capture:  controllers.NewCaptureController(photo, voice, captures, conversion),
		Logs:     controllers.NewLogController(conversion),
		Food:     controllers.NewFoodController(edamam),
		Device:   controllers.NewDeviceController(push),
		Realtime: controllers.NewRealtimeController(hub),
	})

	if err := r.Run(":8080"); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}
