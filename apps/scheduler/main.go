package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/planbilling/internal/attempt"
	"github.com/smallbiznis/planbilling/internal/billing"
	"github.com/smallbiznis/planbilling/internal/clock"
	"github.com/smallbiznis/planbilling/internal/config"
	"github.com/smallbiznis/planbilling/internal/gateway"
	"github.com/smallbiznis/planbilling/internal/invoice"
	"github.com/smallbiznis/planbilling/internal/lock"
	"github.com/smallbiznis/planbilling/internal/member"
	"github.com/smallbiznis/planbilling/internal/membership"
	"github.com/smallbiznis/planbilling/internal/notification"
	"github.com/smallbiznis/planbilling/internal/observability"
	"github.com/smallbiznis/planbilling/internal/paymentmethod"
	"github.com/smallbiznis/planbilling/internal/plan"
	"github.com/smallbiznis/planbilling/internal/providers/email"
	"github.com/smallbiznis/planbilling/internal/scheduler"
	"github.com/smallbiznis/planbilling/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,

		// Domain services required by the billing tick
		plan.Module,
		member.Module,
		paymentmethod.Module,
		membership.Module,
		invoice.Module,
		attempt.Module,
		gateway.Module,
		email.Module,
		notification.Module,
		billing.Module,

		// No server module; migrations are owned by cmd/planbilling.
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	id := int64(2)
	if raw := strings.TrimSpace(os.Getenv("SNOWFLAKE_NODE_ID")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		id = parsed
	}
	return snowflake.NewNode(id)
}
