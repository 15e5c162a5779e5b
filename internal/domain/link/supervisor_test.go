package link

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errTestConnect = errors.New("test connect error")

	epoch = time.Date(2025, 5, 7, 12, 0, 0, 0, time.UTC)
)

// TestSupervisor_HappyPath brings both transports up in order and then drains.
func TestSupervisor_HappyPath(t *testing.T) {
	t.Parallel()

	var transitions []string

	s := NewSupervisor(Config{}, WithChangeHook(func(tr Transport, st State) {
		transitions = append(transitions, tr.String()+":"+st.String())
	}))

	require.Equal(t, Snapshot{Network: Disconnected, Messaging: Disconnected}, s.Snapshot())

	require.Equal(t, ActionConnectNetwork, s.Poll(epoch))
	require.Equal(t, Connecting, s.Snapshot().Network)

	// Attempt in flight: nothing else to do.
	require.Equal(t, ActionNone, s.Poll(epoch))

	s.ReportResult(ActionConnectNetwork, nil, epoch)
	require.Equal(t, ActionConnectMessaging, s.Poll(epoch))

	s.ReportResult(ActionConnectMessaging, nil, epoch)
	require.True(t, s.Snapshot().Online())
	require.Equal(t, ActionDrainInbound, s.Poll(epoch))

	require.Equal(t, []string{
		"network:connecting",
		"network:connected",
		"messaging:connecting",
		"messaging:connected",
	}, transitions)
}

// TestSupervisor_FixedRetryAfterFailure waits the configured interval before retrying.
func TestSupervisor_FixedRetryAfterFailure(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(Config{NetworkRetry: 15 * time.Second, MessagingRetry: 10 * time.Second})

	require.Equal(t, ActionConnectNetwork, s.Poll(epoch))
	s.ReportResult(ActionConnectNetwork, errTestConnect, epoch)
	require.Equal(t, Disconnected, s.Snapshot().Network)

	require.Equal(t, ActionNone, s.Poll(epoch.Add(14*time.Second)))
	require.Equal(t, ActionConnectNetwork, s.Poll(epoch.Add(15*time.Second)))
	s.ReportResult(ActionConnectNetwork, nil, epoch.Add(15*time.Second))

	require.Equal(t, ActionConnectMessaging, s.Poll(epoch.Add(15*time.Second)))
	s.ReportResult(ActionConnectMessaging, errTestConnect, epoch.Add(15*time.Second))

	require.Equal(t, ActionNone, s.Poll(epoch.Add(24*time.Second)))
	require.Equal(t, ActionConnectMessaging, s.Poll(epoch.Add(25*time.Second)))
	require.Equal(t, epoch.Add(25*time.Second), s.RetryAt(Messaging))
}

// TestSupervisor_NetworkLossForcesMessagingDown checks ordering on re-establishment.
func TestSupervisor_NetworkLossForcesMessagingDown(t *testing.T) {
	t.Parallel()

	s := online(t)

	s.NetworkLost(epoch.Add(time.Minute))
	require.Equal(t, Snapshot{Network: Disconnected, Messaging: Disconnected}, s.Snapshot())

	// Messaging is never attempted before the network is back.
	for i := range 15 {
		require.Equal(t, ActionNone, s.Poll(epoch.Add(time.Minute+time.Duration(i)*time.Second)))
	}

	require.Equal(t, ActionConnectNetwork, s.Poll(epoch.Add(time.Minute+DefaultRetryInterval)))
}

// TestSupervisor_DrainFailureDropsMessagingOnly keeps the network connected.
func TestSupervisor_DrainFailureDropsMessagingOnly(t *testing.T) {
	t.Parallel()

	s := online(t)

	s.ReportResult(ActionDrainInbound, errTestConnect, epoch)
	require.Equal(t, Snapshot{Network: Connected, Messaging: Disconnected}, s.Snapshot())

	// A successful drain never changes anything.
	s.ReportResult(ActionDrainInbound, nil, epoch)
	require.Equal(t, Disconnected, s.Snapshot().Messaging)

	s.MessagingLost(epoch)
	require.Equal(t, epoch.Add(DefaultRetryInterval), s.RetryAt(Messaging))
}

// TestSupervisor_StaleResultIgnored drops outcomes of attempts overtaken by a network loss.
func TestSupervisor_StaleResultIgnored(t *testing.T) {
	t.Parallel()

	s := NewSupervisor(Config{})

	require.Equal(t, ActionConnectNetwork, s.Poll(epoch))
	s.ReportResult(ActionConnectNetwork, nil, epoch)
	require.Equal(t, ActionConnectMessaging, s.Poll(epoch))

	s.NetworkLost(epoch)
	s.ReportResult(ActionConnectMessaging, nil, epoch)

	require.Equal(t, Snapshot{Network: Disconnected, Messaging: Disconnected}, s.Snapshot())
}

// online returns a supervisor with both transports connected at epoch.
func online(t *testing.T) *Supervisor {
	t.Helper()

	s := NewSupervisor(Config{})

	require.Equal(t, ActionConnectNetwork, s.Poll(epoch))
	s.ReportResult(ActionConnectNetwork, nil, epoch)
	require.Equal(t, ActionConnectMessaging, s.Poll(epoch))
	s.ReportResult(ActionConnectMessaging, nil, epoch)
	require.True(t, s.Snapshot().Online())

	return s
}
