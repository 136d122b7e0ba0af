package sysmon

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerObservesRunningProcess(t *testing.T) {
	cmd := exec.Command("sleep", "1")
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill(); _ = cmd.Wait() }()

	s := Start(cmd.Process.Pid, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.Usage().Samples >= 2 }, 2*time.Second, 10*time.Millisecond)

	u := s.Stop()
	assert.Greater(t, u.PeakRSS, uint64(0))
	assert.GreaterOrEqual(t, u.PeakProcesses, 1)
	assert.Greater(t, u.PeakRSSMB(), 0.0)

	// Stop is idempotent.
	assert.Equal(t, u.Samples, s.Stop().Samples)
}

func TestSamplerMissingProcess(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	s := Start(cmd.ProcessState.Pid(), 0)
	u := s.Stop()
	assert.Equal(t, 0, u.Samples)
}

func TestSamplerSelf(t *testing.T) {
	s := Start(os.Getpid(), time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	u := s.Stop()
	assert.GreaterOrEqual(t, u.Samples, 1)
}
