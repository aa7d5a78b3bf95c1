package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CedricEugeni/MoMentor/internal/api"
	"github.com/CedricEugeni/MoMentor/internal/api/handlers"
	"github.com/CedricEugeni/MoMentor/internal/realtime/stream"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 실시간 시세 피드 + /ws/portfolio 평가 스트림
- ENABLE_AUTO_SCHEDULING=true 이면 월간 스케줄러 함께 시작

Endpoints:
  GET  /health
  POST /api/runs/generate
  POST /api/runs/trigger-monthly
  GET  /api/runs/has-pending
  GET  /api/runs
  GET  /api/runs/{id}/details
  POST /api/runs/{id}/confirm-positions
  GET  /api/portfolio/current
  POST /api/reset
  GET  /ws/portfolio

Example:
  go run ./cmd/momentor api
  go run ./cmd/momentor api --port 8080 --no-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort        string
	apiNoScheduler bool
	apiOrigins     []string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiNoScheduler, "no-scheduler", false, "월간 스케줄러 비활성화")
	apiCmd.Flags().StringSliceVar(&apiOrigins, "ws-origin", nil, "허용할 WebSocket Origin (비우면 전체 허용)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== MoMentor API Server ===")
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// Live feed + valuation stream
	hub := stream.NewHub(a.log)
	publisher := stream.NewPublisher(hub, a.runs, a.log)
	a.feed.OnRefresh(publisher.OnRefresh)
	a.trackPortfolio(ctx)
	a.feed.Start(ctx)
	defer a.feed.Stop()
	go hub.Run(ctx)

	// Scheduler (optional)
	if a.cfg.EnableAutoScheduling && !apiNoScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	router := api.NewRouter(api.Handlers{
		Runs:      handlers.NewRunHandler(a.runs, a.feed, a.log),
		Portfolio: handlers.NewPortfolioHandler(a.runs, a.log),
		Stream:    handlers.NewStreamHandler(hub, publisher, apiOrigins, a.log),
	}, a.log)
	server := api.New(a.cfg, a.log, router)
	server.OnShutdown(hub.Close)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
