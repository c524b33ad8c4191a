// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTLS(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0600))

	tests := []struct {
		name    string
		cfg     ServerConfig
		want    TLSMode
		wantErr string
	}{
		{name: "plain http", cfg: ServerConfig{}, want: TLSOff},
		{name: "cert and key", cfg: ServerConfig{TLSCert: cert, TLSKey: key}, want: TLSFiles},
		{name: "tailscale", cfg: ServerConfig{TLSTailscale: true}, want: TLSTailscale},
		{name: "cert only", cfg: ServerConfig{TLSCert: cert}, wantErr: "both tls_cert and tls_key"},
		{name: "missing key file", cfg: ServerConfig{TLSCert: cert, TLSKey: filepath.Join(dir, "nope.pem")}, wantErr: "tls_key file not found"},
		{name: "tailscale and files", cfg: ServerConfig{TLSTailscale: true, TLSCert: cert, TLSKey: key}, wantErr: "cannot be combined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := ResolveTLS(tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, mode)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home+"/certs/cert.pem", expandPath("~/certs/cert.pem"))
	assert.Equal(t, "/etc/cert.pem", expandPath("/etc/cert.pem"))
}
