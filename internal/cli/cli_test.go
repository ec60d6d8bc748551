package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vnykmshr/adaptsched/internal/testutil"
	aserrors "github.com/vnykmshr/adaptsched/pkg/common/errors"
)

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVerifyCommand(t *testing.T) {
	out, _, err := runCLI(t, "verify", "--tasks", "200", "--threads", "1,3,8")
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, strings.Count(out, "ok "), 15)
	if strings.Contains(out, "FAIL") {
		t.Errorf("unexpected failure:\n%s", out)
	}
	if !strings.Contains(out, "adaptive") {
		t.Errorf("adaptive policy not verified:\n%s", out)
	}
}

func TestVerifyCommandBadPolicy(t *testing.T) {
	_, _, err := runCLI(t, "verify", "--policies", "fifo")
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)
}

func TestRunCommand(t *testing.T) {
	out, _, err := runCLI(t, "run", "-t", "2", "-p", "guided", "-w", "counter", "-n", "300")
	testutil.AssertNoError(t, err)

	for _, want := range []string{"counter workload, guided policy, 2 threads", "tasks completed: 300", "fairness"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunCommandInvalid(t *testing.T) {
	_, _, err := runCLI(t, "run", "-t", "0", "-w", "counter", "-n", "10")
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)

	_, _, err = runCLI(t, "run", "-w", "fft")
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)
}

func TestBenchCommandCSV(t *testing.T) {
	out, stderr, err := runCLI(t, "--log-format", "json",
		"bench", "--threads", "1,2", "--workloads", "counter", "--tasks", "50", "--csv", "-", "--summary", "--redis-addr", "")
	testutil.AssertNoError(t, err)

	for _, want := range []string{
		"=== COUNTER_WORKLOAD_RESULTS ===",
		"Workload,Mode,Threads,Duration_sec,Throughput,Speedup,Efficiency",
		"counter,LOCK_BASED,1,",
		"counter,HETEROGENEOUS,2,",
		"=== PER_THREAD_FAIRNESS ===",
		"=== TASK_LATENCY_HISTOGRAM ===",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr, "fastest counter") {
		t.Errorf("summary not written to stderr:\n%s", stderr)
	}
	if !strings.Contains(stderr, `"message":"sweep finished"`) {
		t.Errorf("json log missing:\n%s", stderr)
	}
}

func TestBenchCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bench.yaml")
	csvPath := filepath.Join(dir, "out.csv")
	testutil.AssertNoError(t, os.WriteFile(cfgPath, []byte(`
threads: [2]
policies: [dynamic]
workloads: [reduction]
tasks: 500
lock_baseline: false
output:
  csv: `+csvPath+`
`), 0o600))

	out, _, err := runCLI(t, "bench", "--config", cfgPath, "--redis-addr", "")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out, "")

	data, err := os.ReadFile(csvPath)
	testutil.AssertNoError(t, err)
	csv := string(data)
	if !strings.Contains(csv, "reduction,DYNAMIC,2,") || strings.Contains(csv, "LOCK_BASED") {
		t.Errorf("unexpected csv:\n%s", csv)
	}
}

func TestBenchCommandFlagsOverrideConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	testutil.AssertNoError(t, os.WriteFile(cfgPath, []byte("tasks: 5000\nworkloads: [counter]\n"), 0o600))

	out, _, err := runCLI(t, "bench", "-c", cfgPath, "--tasks", "20", "--threads", "1",
		"--policies", "static", "--no-baseline", "--redis-addr", "")
	testutil.AssertNoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	testutil.AssertEqual(t, lines[2][:len("counter,STATIC,1,")], "counter,STATIC,1,")
}

func TestBenchCommandInvalid(t *testing.T) {
	_, _, err := runCLI(t, "bench", "--repeats", "0", "--redis-addr", "")
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)

	_, _, err = runCLI(t, "bench", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	testutil.AssertErrorIs(t, err, os.ErrNotExist)
}

func TestBenchCommandTimeout(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "out.csv")
	_, _, err := runCLI(t, "bench", "--workloads", "mixed", "--threads", "1", "--timeout", "1ns", "--csv", csvPath)
	testutil.AssertErrorIs(t, err, aserrors.ErrTimeout)
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := runCLI(t, "--log-level", "chatty", "verify", "--tasks", "1")
	testutil.AssertErrorIs(t, err, aserrors.ErrInvalidConfiguration)
}
