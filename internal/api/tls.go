// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"fmt"
	"os"
)

// TLSMode selects how the server terminates TLS.
type TLSMode string

const (
	TLSOff       TLSMode = "off"
	TLSFiles     TLSMode = "files"     // tls_cert and tls_key
	TLSTailscale TLSMode = "tailscale" // certificates from tailscaled
)

// ResolveTLS validates the TLS settings of cfg and returns the mode to
// serve with. Certificate files must exist.
func ResolveTLS(cfg ServerConfig) (TLSMode, error) {
	hasFiles := cfg.TLSCert != "" || cfg.TLSKey != ""
	if cfg.TLSTailscale {
		if hasFiles {
			return TLSOff, fmt.Errorf("tls_tailscale cannot be combined with tls_cert/tls_key")
		}
		return TLSTailscale, nil
	}
	if !hasFiles {
		return TLSOff, nil
	}
	if cfg.TLSCert == "" || cfg.TLSKey == "" {
		return TLSOff, fmt.Errorf("both tls_cert and tls_key must be specified (got cert=%q, key=%q)", cfg.TLSCert, cfg.TLSKey)
	}
	if !fileExists(expandPath(cfg.TLSCert)) {
		return TLSOff, fmt.Errorf("tls_cert file not found: %s", expandPath(cfg.TLSCert))
	}
	if !fileExists(expandPath(cfg.TLSKey)) {
		return TLSOff, fmt.Errorf("tls_key file not found: %s", expandPath(cfg.TLSKey))
	}
	return TLSFiles, nil
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
