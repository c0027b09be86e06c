package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashs662/holodeck/internal/api"
	"github.com/yashs662/holodeck/internal/config"
	"github.com/yashs662/holodeck/internal/stores"
	"github.com/yashs662/holodeck/pkg/client"
)

func startServer(t *testing.T) (string, *stores.SimulationStore) {
	t.Helper()
	store := stores.NewSimulationStore()
	server := httptest.NewServer(api.NewHandlers(store, config.Default().Server).Routes())
	t.Cleanup(server.Close)
	return server.URL, store
}

func runCLI(t *testing.T, address string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--address", address, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"list", "get", "create", "update", "delete", "bench", "shell"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	addressFlag := cmd.PersistentFlags().Lookup("address")
	require.NotNil(t, addressFlag)
	assert.Equal(t, "a", addressFlag.Shorthand)
	assert.Equal(t, "127.0.0.1:3030", addressFlag.DefValue)
}

func TestCLIWorkflow(t *testing.T) {
	address, store := startServer(t)

	out, err := runCLI(t, address, "create", "1", "The", "Big", "Goodbye!")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation #1 created.")

	out, err = runCLI(t, address, "create", "1", "Other")
	assert.Error(t, err)
	assert.Contains(t, out, "Simulation #1 already exists under the name The Big Goodbye!")

	out, err = runCLI(t, address, "update", "2", "Bride Of Chaotica!")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation #2 was inserted.")

	out, err = runCLI(t, address, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "The Big Goodbye!")
	assert.Contains(t, out, "Bride Of Chaotica!")

	out, err = runCLI(t, address, "get", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Bride Of Chaotica!")
	assert.NotContains(t, out, "The Big Goodbye!")

	out, err = runCLI(t, address, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation #1 was deleted.")

	_, err = runCLI(t, address, "get", "abc")
	assert.ErrorContains(t, err, "invalid simulation id")

	assert.Equal(t, []stores.Simulation{{ID: 2, Name: "Bride Of Chaotica!"}}, store.List(nil))
}

func TestCLIBench(t *testing.T) {
	address, store := startServer(t)

	out, err := runCLI(t, address, "bench", "--clients", "2", "--iterations", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Successful clients: 2/2")
	assert.Contains(t, out, "Total requests executed: 24")
	assert.Zero(t, store.Len())
}

func TestInteractiveMode(t *testing.T) {
	color.NoColor = true
	address, store := startServer(t)
	c, err := client.NewClient(address)
	require.NoError(t, err)

	in := strings.NewReader("create 7 Fistful of Datas\nbogus\nget 7\nexit\ncreate 8 never\n")
	out := &bytes.Buffer{}
	require.NoError(t, interactiveMode(context.Background(), c, in, out))

	assert.Contains(t, out.String(), "Simulation #7 created.")
	assert.Contains(t, out.String(), "Command BOGUS not found")
	assert.Contains(t, out.String(), "Fistful of Datas")
	assert.Contains(t, out.String(), "Bye...")
	assert.Equal(t, 1, store.Len(), "input after exit is ignored")
}

func TestInteractiveModeEOF(t *testing.T) {
	address, _ := startServer(t)
	c, err := client.NewClient(address)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	require.NoError(t, interactiveMode(context.Background(), c, strings.NewReader("list"), out))
	assert.Contains(t, out.String(), "ID")
}
