// Package testutil holds helpers shared by tests that need a live backend.
package testutil

import (
	"os"
	"testing"
)

// SkipNetworkEnv disables tests that open sockets when set.
const SkipNetworkEnv = "CHATLINE_TEST_SKIP_NETWORK"

// SkipIfNoNetwork skips the test if CHATLINE_TEST_SKIP_NETWORK is set. Use it
// for tests that listen on or dial a TCP socket, which sandboxed environments
// may forbid.
//
// Packages that testutil imports (server, db) cannot use this helper; they
// define a local skipIfNoNetwork.
func SkipIfNoNetwork(t *testing.T) {
	t.Helper()
	if os.Getenv(SkipNetworkEnv) != "" {
		t.Skip("skipping network test: " + SkipNetworkEnv + " is set")
	}
}
