package main

import (
	"context"
	"fmt"
	"os"

	"github.com/extimsu/securestore/internal/keymanager"
	"github.com/extimsu/securestore/internal/rpc"
	"github.com/extimsu/securestore/pkg/securestore"
)

// openStore wires a Store against the local filesystem rooted at
// storeDir, deriving its wrapping key from SECURESTORE_PASSPHRASE. The
// returned Store must be Close()d by the caller.
func openStore() *securestore.Store {
	if err := os.MkdirAll(storeDir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "creating store directory: %v\n", err)
		os.Exit(1)
	}
	wrapKey, owner := derivePassphrase(storeDir)
	transport := rpc.NewLocalTransport(storeDir)
	km := keymanager.New(owner)
	return securestore.New(storeDir, transport, km, wrapKey)
}

func background() context.Context {
	return context.Background()
}
