package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/mskstack/internal/config"
	"github.com/imamik/mskstack/internal/platform/kafka"
	"github.com/imamik/mskstack/internal/synth"
	"github.com/imamik/mskstack/internal/telemetry"
	"github.com/imamik/mskstack/internal/ui/tui"
	"github.com/imamik/mskstack/pkg/msk"
)

// errUnhealthy is returned when doctor found a problem.
var errUnhealthy = errors.New("stack is unhealthy")

// Doctor checks a deployed stack: the template still synthesizes, the
// stack and cluster are healthy, and the topics and ACLs on the cluster
// match the configuration.
func Doctor(ctx context.Context, configPath string, jsonOutput bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	timeouts := config.LoadTimeouts()
	rec := telemetry.New(cfg.Stack.Name)
	defer pushMetrics(ctx, rec)

	s, err := newSession(ctx, cfg, timeouts, rec)
	if err != nil {
		return err
	}

	start := time.Now()
	status := diagnose(ctx, s, cfg, timeouts)
	if status.Drift != nil {
		rec.RecordDrift(len(status.Drift.Problems()))
	}
	healthy := status.Healthy()
	if !healthy {
		err = errUnhealthy
	}
	rec.RecordOperation("doctor", err, time.Since(start))

	if jsonOutput {
		b, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Println(string(b))
	} else if isInteractive() {
		fmt.Print(tui.RenderDoctor(status))
	} else {
		printDoctorPlain(status)
	}

	if !healthy {
		return errUnhealthy
	}
	return nil
}

// diagnose runs the checks in order. A failed check skips the ones that
// depend on it.
func diagnose(ctx context.Context, s *session, cfg *config.Config, timeouts *config.Timeouts) tui.DoctorStatus {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Doctor)
	defer cancel()

	status := tui.DoctorStatus{StackName: cfg.Stack.Name, Region: s.region}
	add := func(c tui.Check) bool {
		status.Checks = append(status.Checks, c)
		return c.OK
	}
	skip := func(names ...string) tui.DoctorStatus {
		for _, n := range names {
			status.Checks = append(status.Checks, tui.Check{Name: n, Skipped: true, Detail: "skipped"})
		}
		return status
	}

	result, err := synth.Build(ctx, cfg, synth.NewConsoleObserver())
	if err != nil {
		add(tui.Check{Name: "template", Detail: err.Error()})
		return skip("stack", "cluster", "brokers", "kafka")
	}
	add(tui.Check{Name: "template", OK: true, Detail: fmt.Sprintf("%d resources", len(result.Stack.LogicalIDs()))})

	var outputs map[string]string
	if cfg.Cluster.Type == config.ClusterTypeExternal {
		add(tui.Check{Name: "stack", Skipped: true, Detail: "external cluster"})
	} else {
		info, err := s.cloud.DescribeStack(ctx, cfg.Stack.Name)
		if err != nil {
			add(tui.Check{Name: "stack", Detail: err.Error()})
			return skip("cluster", "brokers", "kafka")
		}
		outputs = info.Outputs
		if !add(tui.Check{Name: "stack", OK: stackHealthy(info.Status), Detail: info.Status}) {
			return skip("cluster", "brokers", "kafka")
		}
	}

	arn, err := clusterArn(cfg, outputs)
	if err != nil {
		add(tui.Check{Name: "cluster", Detail: err.Error()})
		return skip("brokers", "kafka")
	}
	cluster, err := s.cloud.DescribeCluster(ctx, arn)
	if err != nil {
		add(tui.Check{Name: "cluster", Detail: err.Error()})
		return skip("brokers", "kafka")
	}
	if !add(tui.Check{Name: "cluster", OK: cluster.Active(), Detail: fmt.Sprintf("%s (%s)", cluster.Name, cluster.State)}) {
		return skip("brokers", "kafka")
	}

	auth, secretArn := cfg.AdminAccess()
	bootstrap, err := s.cloud.GetBootstrapBrokers(ctx, arn)
	if err != nil {
		add(tui.Check{Name: "brokers", Detail: err.Error()})
		return skip("kafka")
	}
	brokers, err := bootstrap.For(auth)
	if err != nil {
		add(tui.Check{Name: "brokers", Detail: err.Error()})
		return skip("kafka")
	}
	add(tui.Check{Name: "brokers", OK: true, Detail: fmt.Sprintf("%d %s brokers", len(brokers), auth)})

	if len(result.Topics) == 0 && len(result.ACLs) == 0 {
		add(tui.Check{Name: "kafka", Skipped: true, Detail: "no topics or ACLs declared"})
		return status
	}

	opts := kafka.Options{
		Brokers:     brokers,
		Auth:        auth,
		DialRetries: timeouts.RetryMaxAttempts,
		DialDelay:   timeouts.RetryInitialDelay,
	}
	if auth == msk.AuthenticationMTLS {
		cert, err := s.cloud.GetCertificate(ctx, secretArn)
		if err != nil {
			add(tui.Check{Name: "kafka", Detail: err.Error()})
			return status
		}
		opts.Certificate = &cert
	}

	admin, err := s.connect(ctx, opts)
	if err != nil {
		add(tui.Check{Name: "kafka", Detail: err.Error()})
		return status
	}
	defer func() { _ = admin.Close() }()

	// Serverless clusters have no Kafka ACLs.
	acls := result.ACLs
	if cfg.Cluster.Type == config.ClusterTypeServerless {
		acls = nil
	}
	report, err := admin.Check(ctx, result.Topics, acls)
	if err != nil {
		add(tui.Check{Name: "kafka", Detail: err.Error()})
		return status
	}
	status.Drift = report
	add(tui.Check{Name: "kafka", OK: true, Detail: fmt.Sprintf("connected over %s", auth)})
	return status
}

// stackHealthy reports whether a stack status is a settled success.
func stackHealthy(status string) bool {
	switch status {
	case "CREATE_COMPLETE", "UPDATE_COMPLETE", "IMPORT_COMPLETE":
		return true
	default:
		return false
	}
}

func printDoctorPlain(s tui.DoctorStatus) {
	fmt.Printf("Stack: %s (%s)\n", s.StackName, s.Region)
	for _, c := range s.Checks {
		mark := "FAIL"
		switch {
		case c.Skipped:
			mark = "SKIP"
		case c.OK:
			mark = "OK"
		}
		fmt.Printf("  %-4s %-8s %s\n", mark, c.Name, c.Detail)
	}
	if s.Drift != nil {
		if s.Drift.Clean() {
			fmt.Printf("Kafka: %d topics and %d ACLs match\n", s.Drift.Topics, s.Drift.ACLs)
		} else {
			fmt.Println("Kafka drift:")
			for _, p := range s.Drift.Problems() {
				fmt.Printf("  - %s\n", p)
			}
		}
	}
}
