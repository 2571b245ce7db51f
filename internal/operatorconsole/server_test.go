package operatorconsole_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ashton-dyke/sairen-os/internal/operatorconsole"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
)

type fakeRegistry struct {
	locked    map[string]bool
	cooldowns map[ticket.Category]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{locked: make(map[string]bool), cooldowns: make(map[ticket.Category]bool)}
}

func (f *fakeRegistry) LockBaseline(equipment, metric string) error {
	f.locked[equipment+"/"+metric] = true
	return nil
}

func (f *fakeRegistry) DowngradeBaseline(equipment, metric string) {
	delete(f.locked, equipment+"/"+metric)
}

func (f *fakeRegistry) ClearCooldown(category ticket.Category) {
	f.cooldowns[category] = true
}

func (f *fakeRegistry) Status() map[string]any {
	return map[string]any{"locked_count": len(f.locked)}
}

func startServer(t *testing.T, reg *fakeRegistry) (string, func()) {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "console.sock")
	srv := operatorconsole.NewServer(socketPath, reg, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	require.Eventually(t, func() bool {
		c, err := operatorconsole.Dial(socketPath)
		if err != nil {
			return false
		}
		_ = c.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return socketPath, func() { cancel() }
}

func TestLockBaseline_UpdatesRegistry(t *testing.T) {
	reg := newFakeRegistry()
	socketPath, stop := startServer(t, reg)
	defer stop()

	c, err := operatorconsole.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "lock_baseline", Equipment: "pump-1", Metric: "spp"})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.True(t, reg.locked["pump-1/spp"])
}

func TestClearCooldown_RejectsUnknownCategory(t *testing.T) {
	reg := newFakeRegistry()
	socketPath, stop := startServer(t, reg)
	defer stop()

	c, err := operatorconsole.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "clear_cooldown", Category: "NotACategory"})
	require.NoError(t, err)
	require.False(t, resp.OK)
}

func TestStatus_ReturnsRegistrySnapshot(t *testing.T) {
	reg := newFakeRegistry()
	reg.locked["rig-a/rpm"] = true
	socketPath, stop := startServer(t, reg)
	defer stop()

	c, err := operatorconsole.Dial(socketPath)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Send(operatorconsole.Request{Cmd: "status"})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.EqualValues(t, 1, resp.Status["locked_count"])
}
