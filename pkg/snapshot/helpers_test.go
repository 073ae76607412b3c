package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netops-tools/invsync/pkg/grouping"
	"github.com/netops-tools/invsync/pkg/inventory"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func deviceRecord(id int, name, manufacturer, platform string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id": %d, "name": %q, "platform": {"slug": %q}, "device_type": {"manufacturer": {"slug": %q}}}`,
		id, name, platform, manufacturer))
}

// scenarioRaw is the three-device lab: two Cisco boxes and one VyOS router.
func scenarioRaw() *inventory.Raw {
	return &inventory.Raw{
		Devices: []json.RawMessage{
			deviceRecord(1, "R1", "cisco", "ios"),
			deviceRecord(2, "SW1", "cisco", "ios"),
			deviceRecord(3, "VYOS1", "vyos", "vyos"),
		},
	}
}

func scenarioEngine(t *testing.T) *grouping.Engine {
	t.Helper()
	byManufacturer, err := grouping.NewGroupBy("manufacturer")
	require.NoError(t, err)
	networkOS, err := grouping.NewCompose("ansible_network_os", "platform", map[string]string{
		"ios":  "cisco.ios.ios",
		"vyos": "vyos.vyos.vyos",
	}, nil)
	require.NoError(t, err)
	return grouping.NewEngine([]grouping.Rule{byManufacturer, networkOS}, nil)
}

func staticFetcher(raw *inventory.Raw) FetcherFunc {
	return func(ctx context.Context) (*inventory.Raw, error) {
		return raw, nil
	}
}

// buildSnapshot evaluates hosts named names, all with one platform, into a
// valid unpublished snapshot.
func buildSnapshot(t *testing.T, names ...string) *Snapshot {
	t.Helper()
	hosts := make([]inventory.Host, 0, len(names))
	for i, n := range names {
		hosts = append(hosts, inventory.Host{ID: i + 1, Name: n, Kind: inventory.KindDevice, Platform: "ios"})
	}
	inventory.SortHosts(hosts)
	s, err := Build(hosts, nil, scenarioEngine(t), testTime)
	require.NoError(t, err)
	return s
}
