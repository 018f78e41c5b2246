package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"interview-scheduler/internal/app"
	"interview-scheduler/internal/config"
	"interview-scheduler/internal/notify"
	"interview-scheduler/internal/schedule"
	"interview-scheduler/internal/server"
	"interview-scheduler/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer pool.Close()
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		st = pg
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		st = store.NewMemoryStore()
	}

	hub := notify.NewHub()
	go hub.Run()

	var meetings schedule.MeetingLinker = app.StaticLinker{}
	if linker := app.NewCalendarLinkerFromEnv(); linker != nil {
		meetings = linker
	}

	engine := schedule.NewEngine(st, schedule.Options{
		Capacity:          cfg.Capacity,
		DefaultResource:   cfg.DefaultResource,
		BatchSize:         cfg.BatchSize,
		SearchHorizonDays: cfg.SearchHorizonDays,
		RiskThreshold:     cfg.RiskThreshold,
		RiskMinSample:     cfg.RiskMinSample,
		RiskWindowDays:    cfg.RiskWindowDays,
		Dispatcher:        notify.Multi{notify.LogDispatcher{}, hub},
		Meetings:          meetings,
	})

	jobs := cron.New()
	jobs.AddFunc(cfg.RiskRecomputeSpec, func() {
		if _, err := engine.Risk().Recompute(context.Background(), 0); err != nil {
			log.Printf("risk recompute: %v", err)
		}
	})
	jobs.AddFunc(cfg.ReminderSweepSpec, func() {
		if _, err := engine.SweepReminders(context.Background()); err != nil {
			log.Printf("reminder sweep: %v", err)
		}
	})
	jobs.Start()
	defer jobs.Stop()

	appInstance := &app.App{Engine: engine, Store: st, Hub: hub}

	router := gin.Default()
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	router.GET("/ws/events", appInstance.EventStreamHandler)

	api := router.Group("/api")
	api.Use(app.AuthMiddlewareFromEnv())
	{
		resources := api.Group("/resources")
		{
			resources.POST("/:id/availability", appInstance.SetAvailabilityHandler)
			resources.PUT("/:id/availability/:window_id", appInstance.UpdateAvailabilityHandler)
			resources.GET("/:id/availability", appInstance.ListAvailabilityHandler)
			resources.GET("/:id/slots", appInstance.GetSlotsHandler)
			resources.POST("/:id/bookings", appInstance.CreateBookingHandler)
			resources.GET("/:id/bookings", appInstance.ListBookingsHandler)
		}

		bookings := api.Group("/bookings")
		{
			bookings.GET("/:id", appInstance.GetBookingHandler)
			bookings.POST("/:id/confirm", appInstance.ConfirmBookingHandler)
			bookings.POST("/:id/complete", appInstance.CompleteBookingHandler)
			bookings.POST("/:id/cancel", appInstance.CancelBookingHandler)
			bookings.POST("/:id/no-show", appInstance.NoShowBookingHandler)
			bookings.POST("/:id/reschedule", appInstance.RescheduleBookingHandler)
		}

		queue := api.Group("/queue")
		{
			queue.POST("/entries", appInstance.EnqueueHandler)
			queue.GET("", appInstance.ListQueueHandler)
			queue.POST("/run-cycle", appInstance.RunCycleHandler)
		}

		control := api.Group("/control")
		{
			control.GET("", appInstance.ControlStatusHandler)
			control.POST("/emergency-stop", appInstance.EmergencyStopHandler)
			control.POST("/resume", appInstance.ResumeHandler)
		}

		risk := api.Group("/risk")
		{
			risk.GET("/profiles", appInstance.RiskProfilesHandler)
			risk.POST("/recompute", appInstance.RiskRecomputeHandler)
		}

		api.GET("/candidates/:id/funnel", appInstance.CandidateFunnelHandler)
		api.GET("/funnel/summary", appInstance.FunnelSummaryHandler)
	}

	server.Run(router, ":"+cfg.Port)
}
