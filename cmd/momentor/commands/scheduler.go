package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/CedricEugeni/MoMentor/internal/scheduler"
	"github.com/CedricEugeni/MoMentor/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `월간 자동 런 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행
  logs    - 실행 이력 (scheduler_logs)

Example:
  go run ./cmd/momentor scheduler start
  go run ./cmd/momentor scheduler run monthly_run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업 (strategy timezone 기준):
- universe_refresh: 매월 1일 10:30 (구성 종목 캐시 갱신)
- monthly_run: 매월 1일 11:00 (월간 런 생성)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerLogsCmd = &cobra.Command{
		Use:   "logs",
		Short: "실행 이력 조회",
		RunE:  showLogs,
	}
)

var schedulerLogLimit int

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerLogsCmd)

	schedulerLogsCmd.Flags().IntVar(&schedulerLogLimit, "limit", 20, "최대 개수")
}

// newScheduler registers the jobs of the strategy
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.repo, a.location, a.log)

	if err := sched.AddJob(jobs.NewUniverseJob(a.universe, "", a.log)); err != nil {
		return nil, err
	}
	if err := sched.AddJob(jobs.NewMonthlyRunJob(a.runs, a.strategy.Meta.Schedule, a.log)); err != nil {
		return nil, err
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== MoMentor Scheduler ===")
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %-18s next: %s\n", jobName, formatTime(next.In(a.location)))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Registered jobs (%s):\n", a.location)
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  - %-18s %s\n", name, stat.Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Printf("Running job: %s\n", jobName)
	res, err := sched.RunJob(ctx, jobName)
	if res != nil {
		fmt.Printf("  execution: %s  attempts: %d  duration: %s\n", res.ExecutionID, res.Attempts, res.Duration)
		if res.RunID != nil {
			fmt.Printf("  run: #%d\n", *res.RunID)
		}
	}
	if err != nil {
		PrintError(err.Error())
		return err
	}
	PrintSuccess("Job completed")
	return nil
}

func showLogs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logs, err := a.repo.ListSchedulerLogs(ctx, schedulerLogLimit)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		PrintInfo("No scheduler executions yet")
		return nil
	}

	widths := []int{20, 16, 8, 6, 40}
	PrintTableHeader([]string{"RUN DATE", "JOB", "STATUS", "RUN", "ERROR"}, widths)
	for _, l := range logs {
		run := "-"
		if l.RunID != nil {
			run = strconv.FormatInt(*l.RunID, 10)
		}
		PrintTableRow([]string{formatTime(l.RunDate.In(a.location)), l.JobName, string(l.Status), run, truncate(l.ErrorMessage, 40)}, widths)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
