package config

import (
	"context"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/fx"
)

// NewSNSClient builds the SNS client used for mobile-token push delivery.
// Device tokens are registered as SNS platform endpoints by the mobile apps;
// the engine only publishes to the resulting endpoint ARNs.
func NewSNSClient() *sns.Client {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return sns.NewFromConfig(cfg)
}

// WebPushConfig holds the browser push relay settings. The relay accepts a
// subscription payload plus the message and performs the Web Push protocol
// handshake on our behalf.
type WebPushConfig struct {
	APIKey string
	APIURL string
}

func NewWebPushConfig(lc fx.Lifecycle) *WebPushConfig {
	apiKey := os.Getenv("WEBPUSH_API_KEY")
	apiURL := os.Getenv("WEBPUSH_API_URL")
	if apiKey == "" || apiURL == "" {
		log.Fatal("Missing Environment variables")
	}
	cfg := &WebPushConfig{APIKey: apiKey, APIURL: apiURL}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Println("Web push gateway configured")
			return nil
		},
	})
	return cfg
}
