package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/teambase-app/TeamBase/app/controllers"
	"github.com/teambase-app/TeamBase/internal/pkg/constants"
	"github.com/teambase-app/TeamBase/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// The webhook endpoint is never rate limited: the provider retries on
	// any non-2xx and a limiter would turn bursts into redelivery storms.
	v1.Post(constants.BillingWebhookRoute, controllers.HandleBillingWebhook)

	v1.Get(constants.BillingVerifyRoute, limiter.New(), controllers.HandleBillingVerify)

	admin := v1.Group("", middleware.AdminAPIKeyMiddleware())
	admin.Get(constants.BillingOrgSubRoute, controllers.HandleOrganizationSubscription)
	admin.Get(constants.BillingStatsRoute, controllers.HandleBillingStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
