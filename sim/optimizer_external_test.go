package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFakeOptimizerScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-optimizer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestExternalOptimizer_RequiresCommand(t *testing.T) {
	x := ExternalOptimizer{}
	_, err := x.Optimize(nil, nil, 0, nil)
	require.Error(t, err)
}

func TestExternalOptimizer_RunsScriptAndParsesOutput(t *testing.T) {
	script := writeFakeOptimizerScript(t, `cat > "$2" <<'EOF'
plans:
  mb-1:
    - station: B
      action: PICKUP
      passengers: [p1]
    - station: C
      action: DROPOFF
      passengers: [p1]
EOF
`)

	x := ExternalOptimizer{Command: script, Timeout: 2 * time.Second}
	vehicles := []VehicleSnapshot{{ID: "mb-1", Location: "A", Capacity: 4}}
	pending := []PendingRequest{{PassengerID: "p1", Origin: "B", Destination: "C"}}

	out, err := x.Optimize(pending, vehicles, 0, nil)
	require.NoError(t, err)

	plan := out["mb-1"]
	require.Len(t, plan, 2)
	require.Equal(t, ActionPickup, plan[0].Action)
	require.Equal(t, StationID("B"), plan[0].Station)
}

func TestExternalOptimizer_InvalidPlanIsSubstitutedWithEmpty(t *testing.T) {
	script := writeFakeOptimizerScript(t, `cat > "$2" <<'EOF'
plans:
  mb-1:
    - station: C
      action: DROPOFF
      passengers: [ghost]
EOF
`)

	x := ExternalOptimizer{Command: script, Timeout: 2 * time.Second}
	vehicles := []VehicleSnapshot{{ID: "mb-1", Location: "A", Capacity: 4}}

	out, err := x.Optimize(nil, vehicles, 0, nil)
	require.NoError(t, err)
	require.Nil(t, out["mb-1"], "a plan that fails validation is replaced with nil rather than aborting the run")
}

func TestExternalOptimizer_NonZeroExitIsError(t *testing.T) {
	script := writeFakeOptimizerScript(t, `exit 1`)
	x := ExternalOptimizer{Command: script, Timeout: 2 * time.Second}
	_, err := x.Optimize(nil, nil, 0, nil)
	require.Error(t, err)
}

func TestExternalOptimizer_TimeoutIsError(t *testing.T) {
	script := writeFakeOptimizerScript(t, `sleep 2`)
	x := ExternalOptimizer{Command: script, Timeout: 50 * time.Millisecond}
	_, err := x.Optimize(nil, nil, 0, nil)
	require.Error(t, err)
}
