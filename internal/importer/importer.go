// Package importer loads channel records from the legacy flat-file
// format, one "<channel id>.txt" per channel with "A:<owner id>" and
// "C:<category id>" lines.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aurelwyn/conclave/internal/registry"
)

// Summary reports an import run. Errors holds one entry per file that
// could not be imported; the run continues past them.
type Summary struct {
	Imported int
	Skipped  int
	Errors   []error
}

// ImportDir reads every channel file in dir and inserts a registry record
// for it. Files that are malformed, unreadable, or already present are
// reported in the summary without stopping the run.
func ImportDir(ctx context.Context, store registry.ChannelStore, dir string) (Summary, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("stat import directory: %w", err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("%s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("read import directory: %w", err)
	}

	var summary Summary
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if entry.IsDir() {
			log.Printf("importer: skipping directory %s", entry.Name())
			summary.Skipped++
			continue
		}
		name := entry.Name()
		idPart, ok := strings.CutSuffix(name, ".txt")
		if !ok {
			log.Printf("importer: skipping %s, not a .txt file", name)
			summary.Skipped++
			continue
		}
		channelID, err := strconv.ParseUint(idPart, 10, 64)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("%s: file name is not a channel id", name))
			continue
		}

		record, err := parseFile(filepath.Join(dir, name), channelID)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if err := store.Insert(ctx, record); err != nil {
			if errors.Is(err, registry.ErrAlreadyExists) {
				log.Printf("importer: channel %d already present, skipping", channelID)
				summary.Skipped++
				continue
			}
			summary.Errors = append(summary.Errors, fmt.Errorf("%s: insert record: %w", name, err))
			continue
		}
		summary.Imported++
	}
	return summary, nil
}

func parseFile(path string, channelID uint64) (registry.Channel, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return registry.Channel{}, fmt.Errorf("read file: %w", err)
	}

	var owner, category *uint64
	for _, line := range strings.Split(string(content), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "A":
			owner = &parsed
		case "C":
			category = &parsed
		}
	}
	if owner == nil || category == nil {
		return registry.Channel{}, errors.New("missing owner or category line")
	}
	return registry.Channel{ID: channelID, OwnerID: *owner, Category: category}, nil
}
