//go:build unix

package media

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalGroupNilSafe(t *testing.T) {
	assert.NoError(t, signalGroup(nil, syscall.SIGTERM))
	assert.NoError(t, signalGroup(&exec.Cmd{}, syscall.SIGTERM))
}

func TestSignalGroupTerminatesChildren(t *testing.T) {
	cmd := exec.Command("sh", "-c", "sleep 30")
	setProcessGroup(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, signalGroup(cmd, syscall.SIGTERM))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "terminated")
	case <-time.After(5 * time.Second):
		t.Fatal("process survived group signal")
	}
}

func TestSignalGroupAfterExit(t *testing.T) {
	cmd := exec.Command("true")
	setProcessGroup(cmd)
	require.NoError(t, cmd.Run())
	assert.NoError(t, signalGroup(cmd, syscall.SIGTERM))
}
