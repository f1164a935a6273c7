package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/freightcast/backend/internal/scheduler"
	"github.com/wonny/freightcast/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/freight scheduler start
  go run ./cmd/freight scheduler list
  go run ./cmd/freight scheduler run etl_pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- etl_pipeline: 매일 06:00 (SCHEDULER_ETL_SPEC)
- metrics_refresh: 매시 정각 (SCHEDULER_METRICS_SPEC)

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

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// initScheduler registers etl_pipeline and metrics_refresh.
func initScheduler(ctx context.Context) (*scheduler.Scheduler, *app, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}

	p, err := a.pipeline(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}

	zlog := a.log.Zerolog()
	sched := scheduler.New(zlog,
		scheduler.WithJobTimeout(a.cfg.Scheduler.JobTimeout),
		scheduler.WithObserver(a.metrics),
	)

	for _, job := range []scheduler.Job{
		jobs.NewETLJob(p, a.cfg.Scheduler.ETLSpec, zlog),
		jobs.NewMetricsJob(a.shipments, a.cache, a.cfg.Scheduler.MetricsSpec, zlog),
	} {
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, err
		}
	}

	return sched, a, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== freightcast Scheduler ===")

	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	stopMetrics := a.startMetricsServer()
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()

	ctx, cancel := shutdownContext()
	defer cancel()
	stopMetrics(ctx)
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	stats := sched.GetJobStats()
	widths := []int{18, 16}
	PrintTableHeader([]string{"JOB", "SCHEDULE"}, widths)
	for _, name := range sched.GetAllJobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	PrintJobHeader("Job: "+args[0], time.Now())
	result, err := sched.RunJobSync(context.Background(), args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed: %s", args[0], result.Error)
	}
	PrintCompletion("Job "+args[0]+" completed", result.Duration)
	return nil
}

// showStatus shows schedules and next fire times. History is per process,
// so run counts only reflect jobs run by this invocation.
func showStatus(cmd *cobra.Command, args []string) error {
	sched, a, err := initScheduler(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	sched.Start()
	defer sched.Stop()

	// cron 이 next 시각을 계산할 시간
	time.Sleep(50 * time.Millisecond)

	stats := sched.GetJobStats()
	widths := []int{18, 16, 6, 8, 25}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "RUNS", "SUCCESS", "NEXT RUN"}, widths)
	for _, name := range sched.GetAllJobs() {
		st := stats[name]
		next := "-"
		if st.NextRun != nil {
			next = st.NextRun.Format(time.RFC3339)
		}
		PrintTableRow([]string{
			name,
			st.Schedule,
			fmt.Sprintf("%d", st.TotalRuns),
			fmt.Sprintf("%.0f%%", st.SuccessRate*100),
			next,
		}, widths)
	}
	return nil
}
