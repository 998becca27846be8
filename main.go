package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/ratelimit"
	"backend/internal/session"
	"backend/internal/sms"
	"backend/internal/verification"
)

func main() {
	config.Load()
	if err := config.AppEnv.Validate(); err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureCustomerIndexes(db); err != nil {
		log.Printf("⚠️ customer index warning: %v", err)
	}
	if err := database.EnsureVerificationIndexes(db); err != nil {
		log.Printf("⚠️ verification index warning: %v", err)
	}
	if err := database.EnsureRateLimitIndexes(db); err != nil {
		log.Printf("⚠️ rate limit index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}

	var sender sms.Sender
	if config.AppEnv.SMSDryRun {
		sender = sms.NewLogSender()
	} else {
		sender, err = sms.NewSNSSender(context.Background(), config.AppEnv.SMSRegion, config.AppEnv.SMSSenderID)
		if err != nil {
			log.Fatal("sms sender init failed:", err)
		}
	}

	limiter := ratelimit.New(ratelimit.NewMongoStore(db))
	verifier := verification.NewService(
		verification.NewMongoStateStore(db),
		verification.NewMongoCustomerStore(db),
		limiter,
		sender,
		verification.Config{
			CodeTTL:         config.AppEnv.CodeTTL,
			CodeLength:      config.AppEnv.CodeLength,
			MaxAttempts:     config.AppEnv.MaxCodeAttempts,
			PhoneDailyLimit: config.AppEnv.PhoneDailyLimit,
			IPHourlyLimit:   config.AppEnv.IPHourlyLimit,
		},
	)
	issuer := session.NewIssuer(config.AppEnv.SessionSecret, config.AppEnv.SessionTTL)
	throttle := middleware.NewThrottle(rate.Limit(config.AppEnv.HTTPRateRPS), config.AppEnv.HTTPRateBurst)

	r := gin.Default()

	r.GET("/healthz", handlers.Health(db))

	checkout := r.Group("/checkout")
	checkout.Use(throttle.Limit())
	{
		checkout.POST("/phone/send-code", handlers.SendCode(verifier))
		checkout.POST("/phone/verify-code", handlers.VerifyCode(verifier, issuer))

		authed := checkout.Group("")
		authed.Use(middleware.SessionAuth(issuer))
		{
			authed.GET("/me", handlers.Me(db))
			authed.GET("/addresses", handlers.GetAddresses(db))
			authed.POST("/addresses", handlers.CreateAddress(db, config.AppEnv.AddressLimit))
			authed.PUT("/addresses/:id", handlers.UpdateAddress(db))
			authed.DELETE("/addresses/:id", handlers.DeleteAddress(db))
			authed.POST("/orders", handlers.CreateOrder(db, config.AppEnv.AddressLimit))
			authed.GET("/orders", handlers.GetOrders(db))
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
