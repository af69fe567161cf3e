package pulse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetDeviceStatus(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)

	res, err := client.GetDeviceStatus(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []Action{ActionGetDeviceInfo, ActionGetDeviceStatus}, res.Actions)
	require.Equal(t, DeviceStatus{
		Name:   "Security Panel",
		Make:   "ADT",
		Type:   "TSSC Life Safety Module",
		State:  "Disarmed",
		Status: "All Quiet",
	}, *res.Info)
}

func TestPerformSync(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)

	res, err := client.PerformSync(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []Action{ActionSync}, res.Actions)
	require.Equal(t, "1-0-0", res.Info.SyncCode)

	// cache-busting timestamp is always attached
	require.Contains(t, portal.query(versionedPath("Ajax/SyncCheckServ")), "t=")
}

func TestPerformSyncSessionExpiry(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)
	portal.setFlag(&portal.expired, true)

	res, err := client.PerformSync(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, res.Success)
	require.Nil(t, res.Info)
	require.False(t, client.Authenticated())
}
