package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/extimsu/securestore/internal/configfile"
	"github.com/extimsu/securestore/internal/cryptocore"
	"github.com/extimsu/securestore/internal/exitcodes"
	"github.com/extimsu/securestore/internal/tlog"
)

// kdfConfig is the on-disk shape of the KDF parameters securestore needs
// to re-derive a store's wrapping key from an operator passphrase, plus
// the owner id bound into every object's associated data. OwnerID is
// generated once and pinned here rather than left to --owner on every
// invocation: changing it would change the AEAD associated data and make
// every existing object undecryptable. It never carries the passphrase
// or any derived key.
type kdfConfig struct {
	Kind        string `json:"kind"` // "argon2id" or "scrypt"
	Salt        string `json:"salt"` // base64
	Memory      uint32 `json:"memory,omitempty"`
	Iterations  uint32 `json:"iterations,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`
	LogN        int    `json:"logN,omitempty"`
	OwnerID     string `json:"ownerID"`
}

func configPath(storeDir string) string {
	return filepath.Join(storeDir, ".securestore.kdf")
}

// writeKDFConfig generates a fresh Argon2id KDF (salt plus default cost
// parameters) and a fresh owner id, and persists both atomically so a
// later unlock uses the same salt and associated data. The caller still
// supplies the passphrase at unlock time; nothing secret is written here.
func writeKDFConfig(storeDir string) (configfile.Argon2idKDF, string, error) {
	kdf := configfile.NewArgon2idKDF()
	owner := uuid.NewString()
	cfg := kdfConfig{
		Kind:        "argon2id",
		Salt:        base64.StdEncoding.EncodeToString(kdf.Salt),
		Memory:      kdf.Memory,
		Iterations:  kdf.Iterations,
		Parallelism: kdf.Parallelism,
		OwnerID:     owner,
	}
	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return kdf, "", fmt.Errorf("marshal kdf config: %w", err)
	}
	if err := os.MkdirAll(storeDir, 0700); err != nil {
		return kdf, "", fmt.Errorf("create store dir: %w", err)
	}
	if err := atomic.WriteFile(configPath(storeDir), bytes.NewReader(buf)); err != nil {
		return kdf, "", fmt.Errorf("write kdf config: %w", err)
	}
	return kdf, owner, nil
}

// readKDFConfig loads the KDF parameters and owner id written by
// writeKDFConfig.
func readKDFConfig(storeDir string) (configfile.Argon2idKDF, string) {
	var kdf configfile.Argon2idKDF
	raw, err := os.ReadFile(configPath(storeDir))
	if err != nil {
		tlog.Fatal.Printf("reading kdf config: %v", err)
		os.Exit(exitcodes.LoadConf)
	}
	var cfg kdfConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		tlog.Fatal.Printf("parsing kdf config: %v", err)
		os.Exit(exitcodes.LoadConf)
	}
	if cfg.Kind != "argon2id" {
		tlog.Fatal.Printf("unsupported kdf kind %q", cfg.Kind)
		os.Exit(exitcodes.LoadConf)
	}
	salt, err := base64.StdEncoding.DecodeString(cfg.Salt)
	if err != nil {
		tlog.Fatal.Printf("decoding kdf salt: %v", err)
		os.Exit(exitcodes.LoadConf)
	}
	kdf.Salt = salt
	kdf.Memory = cfg.Memory
	kdf.Iterations = cfg.Iterations
	kdf.Parallelism = cfg.Parallelism
	kdf.KeyLen = cryptocore.KeyLen
	return kdf, cfg.OwnerID
}

// derivePassphrase reads a passphrase from the SECURESTORE_PASSPHRASE
// environment variable and derives the wrapping key for storeDir, along
// with the store's pinned owner id, generating fresh KDF parameters on
// first use.
func derivePassphrase(storeDir string) ([]byte, string) {
	pw := os.Getenv("SECURESTORE_PASSPHRASE")
	if pw == "" {
		tlog.Fatal.Println("SECURESTORE_PASSPHRASE is not set")
		os.Exit(exitcodes.PasswordIncorrect)
	}

	var (
		kdf   configfile.Argon2idKDF
		owner string
		err   error
	)
	if _, statErr := os.Stat(configPath(storeDir)); os.IsNotExist(statErr) {
		kdf, owner, err = writeKDFConfig(storeDir)
		if err != nil {
			tlog.Fatal.Printf("initializing kdf config: %v", err)
			os.Exit(exitcodes.LoadConf)
		}
	} else {
		kdf, owner = readKDFConfig(storeDir)
	}

	return kdf.DeriveKey([]byte(pw)), owner
}
