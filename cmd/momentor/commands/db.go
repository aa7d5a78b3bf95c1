package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/CedricEugeni/MoMentor/pkg/config"
	"github.com/CedricEugeni/MoMentor/pkg/database"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "런 저장소 관리",
	Long: `런 저장소(PostgreSQL 또는 SQLite)를 점검하고 관리합니다.

Subcommands:
  check    - 연결 테스트 + Health Check
  migrate  - 스키마 생성
  reset    - 모든 런/확인/스케줄러 이력 삭제

Example:
  go run ./cmd/momentor db check
  DATABASE_URL=postgres://... go run ./cmd/momentor db migrate`,
}

var (
	dbCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "연결 테스트",
		RunE:  runDBCheck,
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "스키마 생성",
		RunE:  runDBMigrate,
	}

	dbResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "모든 런 삭제",
		RunE:  runDBReset,
	}
)

var dbResetConfirm bool

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbCheckCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)

	dbResetCmd.Flags().BoolVar(&dbResetConfirm, "yes", false, "확인 없이 삭제")
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== MoMentor Database Connection Test ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n", cfg.Env)
	fmt.Printf("   Database URL: %s\n", maskURL(cfg.Database.URL))
	fmt.Printf("   Driver: %s\n\n", cfg.Database.Driver())

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	var status *database.HealthStatus
	switch cfg.Database.Driver() {
	case config.DriverPostgres:
		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("❌ Failed to connect to database: %w", err)
		}
		defer db.Close()
		status, err = db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
	default:
		db, err := database.OpenSQLiteFromConfig(cfg.Database)
		if err != nil {
			return fmt.Errorf("❌ Failed to open database: %w", err)
		}
		defer db.Close()
		status, err = db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Open Connections: %d (idle %d)\n", status.OpenConns, status.IdleConns)
	fmt.Printf("   Timestamp: %v\n", status.Timestamp.Format(time.RFC3339))
	return nil
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	// newApp 이 스키마를 적용한다
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	PrintSuccess(fmt.Sprintf("Schema ready (%s)", a.repo.Driver()))
	return nil
}

func runDBReset(cmd *cobra.Command, args []string) error {
	if !dbResetConfirm {
		PrintWarning("This deletes every run, confirmation and scheduler log. Re-run with --yes.")
		return nil
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.runs.Reset(cmd.Context()); err != nil {
		return err
	}
	PrintSuccess("All runs deleted")
	return nil
}

// maskURL hides the password of a database URL
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
