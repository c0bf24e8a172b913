package bootstrap

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/meesalavenugopal/novacare247/internal/config"
	"github.com/meesalavenugopal/novacare247/internal/notify"
	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

const memoryQueueBuffer = 256

// BuildNotificationQueue selects the in-process queue or SQS.
func BuildNotificationQueue(cfg *appconfig.Config, awsCfg *aws.Config) (notify.Queue, error) {
	if cfg.UseMemoryQueue {
		return notify.NewMemoryQueue(memoryQueueBuffer), nil
	}
	url := strings.TrimSpace(cfg.NotificationQueueURL)
	if url == "" {
		return nil, fmt.Errorf("bootstrap: NOTIFICATION_QUEUE_URL is required when USE_MEMORY_QUEUE=false")
	}
	if awsCfg == nil {
		return nil, fmt.Errorf("bootstrap: aws config is required for the sqs queue")
	}
	return notify.NewSQSQueue(sqs.NewFromConfig(*awsCfg), url), nil
}

// BuildEmailSender picks SendGrid when an API key is set, then SES when
// enabled, and otherwise a stub that only logs. The provider name is returned
// for startup logging.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFromAddress,
		FromName:  cfg.EmailFromName,
	}, logger); sg != nil {
		return sg, "sendgrid"
	}
	if cfg.SESEnabled && awsCfg != nil && strings.TrimSpace(cfg.EmailFromAddress) != "" {
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), cfg.EmailFromAddress, cfg.EmailFromName, logger), "ses"
	}
	return notify.NewStubSender(logger), "stub"
}

// BuildLedger returns the DynamoDB delivery ledger when a table is configured.
func BuildLedger(cfg *appconfig.Config, awsCfg *aws.Config) notify.Ledger {
	if table := strings.TrimSpace(cfg.NotificationLedgerTable); table != "" && awsCfg != nil {
		return notify.NewDynamoLedger(dynamodb.NewFromConfig(*awsCfg), table)
	}
	return notify.NewMemoryLedger()
}

// BuildNotificationWorker assembles a worker draining queue.
func BuildNotificationWorker(cfg *appconfig.Config, awsCfg *aws.Config, queue notify.Queue, m *metrics.NotificationMetrics, logger *logging.Logger) *notify.Worker {
	if logger == nil {
		logger = logging.Default()
	}
	sender, provider := BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("notification worker configured", "provider", provider, "workers", cfg.NotifyWorkerCount)
	return notify.NewWorker(queue, sender, BuildLedger(cfg, awsCfg), logger,
		notify.WithWorkerCount(cfg.NotifyWorkerCount),
		notify.WithWorkerMetrics(m),
	)
}

// BuildComposer renders notification bodies with the configured branding.
func BuildComposer(cfg *appconfig.Config) *notify.Composer {
	return notify.NewComposer(cfg.EmailFromName, cfg.SupportEmail, cfg.SiteURL)
}
