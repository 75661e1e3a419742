package audiomixer

import (
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestProcessSnapshot(t *testing.T) {
	snapshot := newProcessSnapshot([]ps.Process{
		fakeProcess{pid: 0, ppid: 0, exe: "[System Process]"},
		proc(10, 0),
		proc(20, 10),
		proc(21, 10),
		proc(22, 99), // parent already exited
		proc(20, 11), // duplicate listing, first one wins
		nil,
	})

	parent, ok := snapshot.parent(20)
	require.True(t, ok)
	assert.Equal(t, ProcessID(10), parent)

	// the idle process is its own parent, that isn't an edge
	_, ok = snapshot.parent(0)
	assert.False(t, ok)

	_, ok = snapshot.parent(22)
	assert.False(t, ok)

	_, ok = snapshot.parent(12345)
	assert.False(t, ok)

	assert.Equal(t, []ProcessID{20, 21}, snapshot.childrenOf(10))
	assert.Equal(t, []ProcessID{10}, snapshot.childrenOf(0))
	assert.Empty(t, snapshot.childrenOf(21))

	name, ok := snapshot.executable(21)
	require.True(t, ok)
	assert.Equal(t, "proc21.exe", name)
}

func TestFindShellRoot(t *testing.T) {
	tests := []struct {
		name      string
		processes []ps.Process
		expected  ProcessID
		found     bool
	}{
		{
			name: "nested shell instances",
			processes: []ps.Process{
				fakeProcess{pid: 1, ppid: 0, exe: "userinit.exe"},
				fakeProcess{pid: 30, ppid: 20, exe: "explorer.exe"},
				fakeProcess{pid: 20, ppid: 1, exe: "EXPLORER.EXE"},
				fakeProcess{pid: 40, ppid: 30, exe: "app.exe"},
			},
			expected: 20,
			found:    true,
		},
		{
			name: "orphaned shell",
			processes: []ps.Process{
				fakeProcess{pid: 30, ppid: 20, exe: "explorer.exe"},
			},
			expected: 30,
			found:    true,
		},
		{
			name: "shell cycle",
			processes: []ps.Process{
				fakeProcess{pid: 30, ppid: 31, exe: "explorer.exe"},
				fakeProcess{pid: 31, ppid: 30, exe: "explorer.exe"},
			},
			expected: 31,
			found:    true,
		},
		{
			name: "no shell",
			processes: []ps.Process{
				fakeProcess{pid: 30, ppid: 1, exe: "app.exe"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, found := findShellRoot(newProcessSnapshot(tt.processes), "explorer.exe")
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expected, root)
		})
	}
}

func TestProcessTree_DefaultsToLiveProcesses(t *testing.T) {
	tree := newProcessTree(zaptest.NewLogger(t).Sugar(), nil)

	snapshot, err := tree.snapshot()
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.order)
}
