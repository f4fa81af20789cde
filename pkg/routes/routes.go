package pkg

import (
	"context"
	"log"

	"SchoolBeacon/internal/auth"
	"SchoolBeacon/internal/config"
	"SchoolBeacon/internal/directory"
	"SchoolBeacon/internal/notification"
	"SchoolBeacon/internal/presence"
	"SchoolBeacon/internal/push"
	"SchoolBeacon/pkg/middleware"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var EchoModules = fx.Module("echo",
	fx.Provide(NewEchoServer),
	fx.Provide(config.NewLogger),
	fx.Provide(config.NewMongoDBConfig),
	fx.Provide(config.NewMongoDBClient),
	fx.Provide(config.NewSNSClient),
	fx.Provide(config.NewWebPushConfig),
	fx.Provide(auth.NewUserRepository),
	fx.Provide(auth.NewUserService),
	fx.Provide(auth.NewAuthHandler),
	fx.Provide(directory.NewRepository),
	fx.Provide(presence.NewRegistry),
	fx.Provide(presence.NewSocketHandler),
	fx.Provide(push.NewRepository),
	fx.Provide(push.NewMobileSender),
	fx.Provide(push.NewBrowserSender),
	fx.Provide(push.NewService),
	fx.Provide(push.NewHandler),
	fx.Provide(notification.NewRepository),
	fx.Provide(notification.NewResolver),
	fx.Provide(notification.NewPresenceSource),
	fx.Provide(notification.NewDispatcher),
	fx.Provide(notification.NewService),
	fx.Provide(notification.NewHandler),
	fx.Provide(notification.NewRetentionSweeper),

	// interface bindings
	fx.Provide(func(c *sns.Client) push.SNSAPI { return c }),
	fx.Provide(func(r *push.Repository) push.SubscriptionStore { return r }),
	fx.Provide(func(r *directory.Repository) notification.Directory { return r }),
	fx.Provide(func(r *directory.Repository) notification.ProfileSource { return r }),
	fx.Provide(func(r *notification.Repository) notification.Store { return r }),
	fx.Provide(func(s *push.Service) notification.PushSender { return s }),
	fx.Provide(func(d *notification.Dispatcher) notification.EventDispatcher { return d }),
	fx.Provide(func(s *notification.Service) auth.IdentityNotifier { return s }),

	fx.Invoke(RegisterRoutes),
	fx.Invoke(func(s *notification.RetentionSweeper, lc fx.Lifecycle) { s.StartSweeper(lc) }),
)

func NewEchoServer(lc fx.Lifecycle) *echo.Echo {
	e := echo.New()
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:5173"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	port := ":8080"
	log.Println("Server running on http://localhost" + port[1:])
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(port); err != nil {
					log.Fatal("Failed to start the server:", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("shutting down the server ...")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func RegisterRoutes(
	e *echo.Echo,
	authHandler *auth.AuthHandler,
	notifHandler *notification.Handler,
	pushHandler *push.Handler,
	socketHandler *presence.SocketHandler,
) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.POST("/verify-email", authHandler.VerifyEmail)
	e.POST("/forgot-password", authHandler.ForgotPassword)
	e.POST("/reset-password", authHandler.ResetPassword)

	e.GET("/ws", socketHandler.Connect, middleware.JWTMiddleware)

	protected := e.Group("/api")
	protected.Use(middleware.JWTMiddleware)
	protected.Use(middleware.CasbinMiddleware)

	protected.GET("/profile", authHandler.Profile)

	protected.POST("/notifications", notifHandler.Create)
	protected.GET("/notifications", notifHandler.List)
	protected.GET("/notifications/unread-count", notifHandler.UnreadCount)
	protected.POST("/notifications/:id/read", notifHandler.MarkRead)
	protected.POST("/notifications/read-all", notifHandler.MarkAllRead)
	protected.POST("/notifications/read-by-type", notifHandler.MarkTypeRead)
	protected.DELETE("/notifications/:id", notifHandler.Delete)

	protected.POST("/push/register", pushHandler.RegisterEndpoint)
}
