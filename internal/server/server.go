package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/obralog/fleetmeter/internal/backfill"
	backfilldomain "github.com/obralog/fleetmeter/internal/backfill/domain"
	"github.com/obralog/fleetmeter/internal/config"
	"github.com/obralog/fleetmeter/internal/equipment"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"github.com/obralog/fleetmeter/internal/fueling"
	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
	"github.com/obralog/fleetmeter/internal/gaps"
	gapsdomain "github.com/obralog/fleetmeter/internal/gaps/domain"
	"github.com/obralog/fleetmeter/internal/observability"
	obsmiddleware "github.com/obralog/fleetmeter/internal/observability/logger"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	obstracing "github.com/obralog/fleetmeter/internal/observability/tracing"
	"github.com/obralog/fleetmeter/internal/providers/pdf"
	"github.com/obralog/fleetmeter/internal/reading"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/obralog/fleetmeter/internal/reconcile"
	reconciledomain "github.com/obralog/fleetmeter/internal/reconcile/domain"
	"github.com/obralog/fleetmeter/internal/sheets"
	"github.com/obralog/fleetmeter/internal/sitemetrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	sitemetrics.Module,
	fx.Provide(registerGin),
	equipment.Module,
	reading.Module,
	fueling.Module,
	sheets.Module,
	reconcile.Module,
	gaps.Module,
	backfill.Module,
	pdf.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	equipmentSvc equipmentdomain.Service
	readingSvc   readingdomain.Service
	fuelingSvc   fuelingdomain.Service
	reconcileSvc reconciledomain.Service
	gapsSvc      gapsdomain.Service
	backfillSvc  backfilldomain.Service
	pdfProvider  pdf.Provider
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	EquipmentSvc equipmentdomain.Service
	ReadingSvc   readingdomain.Service
	FuelingSvc   fuelingdomain.Service
	ReconcileSvc reconciledomain.Service
	GapsSvc      gapsdomain.Service
	BackfillSvc  backfilldomain.Service
	PDFProvider  pdf.Provider
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		equipmentSvc: p.EquipmentSvc,
		readingSvc:   p.ReadingSvc,
		fuelingSvc:   p.FuelingSvc,
		reconcileSvc: p.ReconcileSvc,
		gapsSvc:      p.GapsSvc,
		backfillSvc:  p.BackfillSvc,
		pdfProvider:  p.PDFProvider,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.GET("/healthz", s.Healthz)

	// -------- Equipment --------
	v1.GET("/equipment", s.ListEquipment)
	v1.GET("/equipment/:id", s.GetEquipmentByID)
	v1.GET("/equipment/:id/previous", s.GetEquipmentPrevious)

	// -------- Readings --------
	v1.GET("/readings", s.ListReadings)
	v1.POST("/readings", s.CreateReading)

	// -------- Fuel events --------
	v1.GET("/fuel-events", s.ListFuelEvents)
	v1.POST("/fuel-events", s.CreateFuelEvent)

	// -------- Pending work --------
	v1.GET("/pending", s.GetPending)
	v1.GET("/pending/checklist.pdf", s.GetPendingChecklistPDF)

	// -------- Backfill --------
	v1.POST("/backfill/run", s.RunBackfill)

	if s.cfg.Environment != "production" {
		v1.POST("/test/cleanup", s.TestCleanup)
	}
}

func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
