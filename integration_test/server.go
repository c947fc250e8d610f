package integration_test

import (
	"context"
	"net"
	"os"

	"github.com/NelminDev/PwnedCraft/server"
	"github.com/NelminDev/PwnedCraft/structs"
)

// TestServer wraps a server instance listening on a random port.
type TestServer struct {
	*server.Server
	Addr   string
	tmpDir string
	cancel context.CancelFunc
	result chan error
}

// NewTestServer starts a server on a random port. configure, when not
// nil, gets to adjust the runtime config before anyone connects.
func NewTestServer(configure func(*structs.ServerConfig)) (*TestServer, error) {
	tmpDir, err := os.MkdirTemp("", "pwnedcraft-integration-*")
	if err != nil {
		return nil, err
	}

	srv, err := server.New(server.Config{SSHAddr: "127.0.0.1:0", Dir: tmpDir})
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	if configure != nil {
		configure(srv.Config())
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ts := &TestServer{
		Server: srv,
		Addr:   ln.Addr().String(),
		tmpDir: tmpDir,
		cancel: cancel,
		result: make(chan error, 1),
	}
	go func() {
		ts.result <- srv.Serve(ctx, ln)
	}()
	return ts, nil
}

// Close shuts the server down and removes its directory.
func (ts *TestServer) Close() error {
	ts.cancel()
	err := <-ts.result
	os.RemoveAll(ts.tmpDir)
	return err
}
