// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package diagnostics

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var defaultSeeds []byte

// Seed is a known solution loaded from YAML.
type Seed struct {
	Message    string   `yaml:"message" json:"message"`
	Solution   string   `yaml:"solution" json:"solution"`
	FixPattern string   `yaml:"fix_pattern" json:"fix_pattern,omitempty"`
	Category   Category `yaml:"category" json:"category,omitempty"`
}

// DefaultSeeds returns the built-in known solutions.
func DefaultSeeds() ([]Seed, error) {
	return parseSeeds(defaultSeeds)
}

// LoadSeedFile reads additional known solutions from a YAML file.
func LoadSeedFile(path string) ([]Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeeds(data)
}

func parseSeeds(data []byte) ([]Seed, error) {
	var seeds []Seed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	for i, s := range seeds {
		if s.Message == "" || s.Solution == "" {
			return nil, fmt.Errorf("seed %d: message and solution are required", i)
		}
	}
	return seeds, nil
}

// SeedSolutions inserts each seed whose fingerprint has no solution yet.
// Seeded rows start at success_count 0 so any recorded fix outranks them.
// It returns the number of rows inserted.
func (s *Store) SeedSolutions(ctx context.Context, seeds []Seed) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin", err)
	}
	defer tx.Rollback()

	now := formatTime(s.now())
	inserted := 0
	for _, seed := range seeds {
		fp := Fingerprint(seed.Message)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO solutions(message_hash, solution_text, fix_pattern, success_count, created_at, updated_at)
			 SELECT ?, ?, ?, 0, ?, ?
			 WHERE NOT EXISTS (SELECT 1 FROM solutions WHERE message_hash = ?)`,
			fp, seed.Solution, toNullStr(seed.FixPattern), now, now, fp,
		)
		if err != nil {
			return 0, storageErr("seed solution", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit seeds", err)
	}
	return inserted, nil
}
