package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Archiver keeps a JSON copy of rows before a destructive maintenance job
// removes them.
type Archiver struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
}

func NewArchiver(store ObjectStore, prefix string) *Archiver {
	if prefix == "" {
		prefix = "archives"
	}
	return &Archiver{store: store, prefix: strings.Trim(prefix, "/"), now: time.Now}
}

// Archive uploads payload as <prefix>/<name>/<timestamp>-<id>.json and returns
// the object key.
func (a *Archiver) Archive(ctx context.Context, name, id string, payload any) (string, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s archive: %w", name, err)
	}
	key := fmt.Sprintf("%s/%s/%s-%s.json", a.prefix, name, a.now().UTC().Format("20060102T150405Z"), id)
	if err := a.store.Put(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return "", err
	}
	return key, nil
}

// Discard removes an archive whose deletion never committed.
func (a *Archiver) Discard(ctx context.Context, key string) error {
	return a.store.Delete(ctx, key)
}
