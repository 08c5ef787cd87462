package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/consumer"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/latefee"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/repository"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/service"
	transport "github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/internal/transport/http"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/config"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/db"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/logger"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/metrics"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/mq"
	"github.com/BlueBerryD42/Co-Hire-Share-EV-Microservices-sub010/pkg/obs"
)

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	zlog := logger.NewLogger()

	// Fee bands are validated before anything starts: a broken table is a
	// configuration error, not a runtime surprise.
	bands := must(latefee.ParseBands(cfg.LateFeeBands))
	feeOpts := latefee.Options{
		GraceMinutes: cfg.LateFeeGraceMinutes,
		MaxFee:       cfg.LateFeeMax,
		Bands:        bands,
	}

	shutdownTracer := obs.InitTracer("booking-service")
	defer func() { _ = shutdownTracer(context.Background()) }()

	gdb := db.Open(cfg.PGBookingDSN)
	bookings := repository.NewBookingRepo(gdb)
	recurrings := repository.NewRecurringRepo(gdb)
	templates := repository.NewTemplateRepo(gdb)
	checkins := repository.NewCheckInRepo(gdb)
	members := repository.NewMemberRepo(gdb)
	must(0, bookings.Migrate())
	must(0, recurrings.Migrate())
	must(0, templates.Migrate())
	must(0, members.Migrate())

	met := metrics.NewMetrics("booking")

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange))
	defer pub.Close()

	adm := service.NewAdmissionSvc(bookings, pub, met, zlog, cfg.EmergencyBoost)
	avail := service.NewAvailabilitySvc(bookings)
	gen := service.NewRecurrenceSvc(recurrings, met, zlog, cfg.GenerationLookBack, cfg.GenerationBudget, cfg.EmergencyBoost)
	tmpl := service.NewTemplateSvc(templates, adm, zlog)
	ci := service.NewCheckInSvc(bookings, checkins, members, feeOpts, pub, met, zlog, cfg.NotifyOnLateFee)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Member projection from user.* events
	userCons := must(mq.NewConsumer(cfg.RabbitURL, cfg.UserExchange, cfg.UserQueue, []string{"user.registered", "user.updated"}))
	defer userCons.Close()
	must(0, consumer.NewUserConsumer(members, userCons, zlog).Run(ctx))
	zlog.Info("user event consumer started", "queue", cfg.UserQueue)

	// Cron-like recurrence generation
	go func() {
		t := time.NewTicker(cfg.GenerationInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				report, err := gen.Run(ctx, time.Now().UTC(), cfg.GenerationHorizonDays)
				if err != nil {
					zlog.Error("recurrence generation batch failed", "error", err)
					continue
				}
				zlog.Info("recurrence generation finished",
					"rules_processed", report.RulesProcessed,
					"rules_failed", report.RulesFailed,
					"bookings_created", report.BookingsCreated,
					"gaps_skipped", report.GapsSkipped)
			}
		}
	}()

	bh := transport.NewBookingHandler(adm, avail, ci)
	th := transport.NewTemplateHandler(templates, tmpl)
	rh := transport.NewRecurringHandler(recurrings, gen)
	router := transport.NewRouter([]byte(cfg.JWTSecret), bh, th, rh)

	srv := &http.Server{Addr: cfg.BookingHTTPAddr, Handler: router}
	go func() {
		zlog.Info("booking http listening", "addr", cfg.BookingHTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("http serve", "error", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)
	zlog.Info("booking service stopped")
}
