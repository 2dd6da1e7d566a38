// Command securestore is a CLI front end for pkg/securestore: an atomic,
// authenticated, encrypted single-file secure storage backend modeled on
// a trusted execution environment's normal-world filesystem RPC.
package main

func main() {
	Execute()
}
