package rollout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schuecal/avdroll/pkg/log"
	"github.com/schuecal/avdroll/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// fakeHostClient implements HostClient for tests
type fakeHostClient struct {
	mu        sync.Mutex
	hosts     []types.SessionHost
	listErr   error
	failVMs   map[string]error
	listCalls int
	restarts  []string
	afterList func(call int) // optional hook to mutate state between enumerations
}

func (f *fakeHostClient) ListSessionHosts(ctx context.Context, hostPool string) ([]types.SessionHost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.afterList != nil {
		f.afterList(f.listCalls)
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.SessionHost, len(f.hosts))
	copy(out, f.hosts)
	return out, nil
}

func (f *fakeHostClient) RestartVM(ctx context.Context, vmName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts = append(f.restarts, vmName)
	if err, ok := f.failVMs[vmName]; ok {
		return err
	}
	return nil
}

func (f *fakeHostClient) restartCount(vmName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, name := range f.restarts {
		if name == vmName {
			n++
		}
	}
	return n
}

func quickRestartConfig() RestartConfig {
	return RestartConfig{Warmup: time.Millisecond, Parallelism: 1}
}

func poolHosts(n int) []types.SessionHost {
	hosts := make([]types.SessionHost, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("we-sn-17-%d", i)
		hosts = append(hosts, types.SessionHost{
			Name:   "we-app-avd-build.2024.05.17.03/" + name + ".corp.example.com",
			VMName: name,
			Status: types.SessionHostAvailable,
		})
	}
	return hosts
}

func TestRunIssuesOneRestartPerHostPerWave(t *testing.T) {
	hosts := &fakeHostClient{hosts: poolHosts(3)}
	r := NewRestarter(hosts, nil, quickRestartConfig())

	reports, err := r.Run(context.Background(), "we-app-avd-build.2024.05.17.03")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, 2, hosts.listCalls, "each wave enumerates fresh")
	assert.Len(t, hosts.restarts, 6)
	for i := 0; i < 3; i++ {
		assert.Equal(t, 2, hosts.restartCount(fmt.Sprintf("we-sn-17-%d", i)))
	}
	for i, report := range reports {
		assert.Equal(t, i+1, report.Wave)
		assert.Equal(t, 3, report.Hosts)
		assert.Equal(t, 3, report.Restarted)
		assert.Empty(t, report.Failures)
	}
}

func TestRunWithNoHostsStillRunsTwoWaves(t *testing.T) {
	hosts := &fakeHostClient{}
	r := NewRestarter(hosts, nil, quickRestartConfig())

	reports, err := r.Run(context.Background(), "empty-pool")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Empty(t, hosts.restarts)
}

func TestRunSingleHost(t *testing.T) {
	hosts := &fakeHostClient{hosts: poolHosts(1)}
	r := NewRestarter(hosts, nil, quickRestartConfig())

	reports, err := r.Run(context.Background(), "pool")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, 2, hosts.restartCount("we-sn-17-0"))
}

func TestHostFailureDoesNotAbortWave(t *testing.T) {
	hosts := &fakeHostClient{
		hosts:   poolHosts(3),
		failVMs: map[string]error{"we-sn-17-1": errors.New("vm restart conflict")},
	}
	r := NewRestarter(hosts, nil, quickRestartConfig())

	reports, err := r.Run(context.Background(), "pool")
	require.NoError(t, err, "per-host failures are reported, not fatal")
	require.Len(t, reports, 2)

	for _, report := range reports {
		assert.Equal(t, 2, report.Restarted)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "we-sn-17-1", report.Failures[0].VMName)
		assert.Contains(t, report.Failures[0].Err, "conflict")
	}
	// The remaining hosts were still restarted in both waves.
	assert.Equal(t, 2, hosts.restartCount("we-sn-17-0"))
	assert.Equal(t, 2, hosts.restartCount("we-sn-17-2"))
}

func TestEnumerationFailureIsFatal(t *testing.T) {
	hosts := &fakeHostClient{listErr: errors.New("control plane unavailable")}
	r := NewRestarter(hosts, nil, quickRestartConfig())

	reports, err := r.Run(context.Background(), "pool")
	assert.Error(t, err)
	assert.Empty(t, reports)
	assert.Empty(t, hosts.restarts)
}

func TestParallelRestartsPreserveWaveStructure(t *testing.T) {
	cfg := quickRestartConfig()
	cfg.Parallelism = 4

	hosts := &fakeHostClient{hosts: poolHosts(8)}
	r := NewRestarter(hosts, nil, cfg)

	reports, err := r.Run(context.Background(), "pool")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Len(t, hosts.restarts, 16)
}

func TestCancellationStopsBetweenWaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	hosts := &fakeHostClient{hosts: poolHosts(2)}
	cfg := quickRestartConfig()
	cfg.Warmup = time.Hour
	r := NewRestarter(hosts, nil, cfg)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	reports, err := r.Run(ctx, "pool")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reports, 1, "second wave never started")
	assert.Len(t, hosts.restarts, 2)
}

func TestReadinessPollingReplacesFixedWarmup(t *testing.T) {
	hosts := &fakeHostClient{hosts: poolHosts(2)}
	// Hosts report Unavailable until the third enumeration.
	for i := range hosts.hosts {
		hosts.hosts[i].Status = types.SessionHostUnavailable
	}
	hosts.afterList = func(call int) {
		if call >= 3 {
			for i := range hosts.hosts {
				hosts.hosts[i].Status = types.SessionHostAvailable
			}
		}
	}

	cfg := RestartConfig{
		Warmup:            time.Hour, // must not be used
		Parallelism:       1,
		PollReadiness:     true,
		ReadinessInterval: time.Millisecond,
		ReadinessTimeout:  5 * time.Second,
	}
	r := NewRestarter(hosts, nil, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		reports, err := r.Run(context.Background(), "pool")
		assert.NoError(t, err)
		assert.Len(t, reports, 2)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("readiness polling did not complete; fixed warmup may have been used")
	}
}

func TestReadinessPollingTimesOutAndProceeds(t *testing.T) {
	hosts := &fakeHostClient{hosts: poolHosts(1)}
	hosts.hosts[0].Status = types.SessionHostUnavailable

	cfg := RestartConfig{
		Warmup:            time.Hour,
		Parallelism:       1,
		PollReadiness:     true,
		ReadinessInterval: time.Millisecond,
		ReadinessTimeout:  20 * time.Millisecond,
	}
	r := NewRestarter(hosts, nil, cfg)

	reports, err := r.Run(context.Background(), "pool")
	require.NoError(t, err)
	assert.Len(t, reports, 2, "timeout falls back to running the next wave")
}
