// Package it holds end-to-end tests that run a real acceptor and initiator
// over loopback TCP.
package it

import (
	"os"
	"testing"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("skipping integration test; set INTEGRATION=1 to run")
	}
}
