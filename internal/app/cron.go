package app

import (
	"context"
	"time"

	"github.com/partnerhub/core/internal/config"
	"github.com/partnerhub/core/internal/modules/webhook"
	pkgcron "github.com/partnerhub/core/internal/pkg/cron"
)

const jobPurgeDeliveryLogs = "purge_webhook_logs"

// registerCronJobs registers the scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, webhooks *webhook.Service, cfg *config.AppConfig) {
	retention := cfg.Webhook.LogRetention
	if retention <= 0 {
		return
	}
	sched.Register(pkgcron.Job{
		Name:        jobPurgeDeliveryLogs,
		Description: "Delete webhook delivery logs past the retention window",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			_, err := webhooks.PurgeLogs(ctx, retention)
			return err
		},
	})
}
