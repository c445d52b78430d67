// Package backup exports knowledge-graph snapshots to object storage and
// restores them.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bowerhall/graphlite/graphdb"
	"github.com/bowerhall/graphlite/internal/logger"
	"github.com/bowerhall/graphlite/internal/storage"
)

const (
	prefix     = "snapshots/"
	nameLayout = "20060102T150405Z"
)

// ObjectStore is the part of the storage client backups need.
type ObjectStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	Download(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, name string) error
}

// Graph is satisfied by *graphdb.Store.
type Graph interface {
	Snapshot(ctx context.Context) (*graphdb.KnowledgeGraph, error)
	Load(ctx context.Context, kg *graphdb.KnowledgeGraph, opts graphdb.LoadOptions) error
}

type Manager struct {
	graph   Graph
	objects ObjectStore
	keep    int
	now     func() time.Time
}

// NewManager keeps the newest keep snapshots after each run; 0 keeps all.
func NewManager(graph Graph, objects ObjectStore, keep int) *Manager {
	return &Manager{
		graph:   graph,
		objects: objects,
		keep:    keep,
		now:     time.Now,
	}
}

func objectName(t time.Time) string {
	return prefix + "graph-" + t.UTC().Format(nameLayout) + ".json"
}

// Run uploads one snapshot and prunes old ones. It returns the object name.
func (m *Manager) Run(ctx context.Context) (string, error) {
	kg, err := m.graph.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	data, err := json.Marshal(kg)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	name := objectName(m.now())
	if err := m.objects.Upload(ctx, name, data, "application/json"); err != nil {
		return "", err
	}

	logger.Info("backup uploaded", "name", name, "nodes", len(kg.Nodes), "edges", len(kg.Edges))

	if err := m.Prune(ctx); err != nil {
		return name, err
	}

	return name, nil
}

// Snapshots lists snapshot object names, oldest first.
func (m *Manager) Snapshots(ctx context.Context) ([]string, error) {
	objects, err := m.objects.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, obj := range objects {
		if strings.HasSuffix(obj.Name, ".json") {
			names = append(names, obj.Name)
		}
	}
	slices.Sort(names)

	return names, nil
}

func (m *Manager) Prune(ctx context.Context) error {
	if m.keep <= 0 {
		return nil
	}

	names, err := m.Snapshots(ctx)
	if err != nil {
		return err
	}
	if len(names) <= m.keep {
		return nil
	}

	for _, name := range names[:len(names)-m.keep] {
		if err := m.objects.Delete(ctx, name); err != nil {
			return err
		}
		logger.Debug("backup pruned", "name", name)
	}

	return nil
}

// Restore replaces the graph with the named snapshot, or the newest one when
// name is empty.
func (m *Manager) Restore(ctx context.Context, name string) (string, error) {
	if name == "" {
		names, err := m.Snapshots(ctx)
		if err != nil {
			return "", err
		}
		if len(names) == 0 {
			return "", fmt.Errorf("no snapshots found")
		}
		name = names[len(names)-1]
	}

	data, err := m.objects.Download(ctx, name)
	if err != nil {
		return "", err
	}

	var kg graphdb.KnowledgeGraph
	if err := json.Unmarshal(data, &kg); err != nil {
		return "", fmt.Errorf("decode snapshot %s: %w", name, err)
	}

	if err := m.graph.Load(ctx, &kg, graphdb.LoadOptions{Override: true}); err != nil {
		return "", fmt.Errorf("load snapshot %s: %w", name, err)
	}

	logger.Info("backup restored", "name", name, "nodes", len(kg.Nodes), "edges", len(kg.Edges))
	return name, nil
}

// cronParser accepts standard 5-field expressions and descriptors like @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ValidateSchedule(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule: %w", err)
	}
	return nil
}

// Schedule runs backups on schedule until ctx is cancelled.
func (m *Manager) Schedule(ctx context.Context, schedule string) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	c := cron.New(cron.WithParser(cronParser))
	_, err := c.AddFunc(schedule, func() {
		if _, err := m.Run(ctx); err != nil {
			logger.Error("scheduled backup failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule backup: %w", err)
	}

	c.Start()
	logger.Info("backup scheduler started", "schedule", schedule)

	<-ctx.Done()
	<-c.Stop().Done()

	logger.Info("backup scheduler stopped")
	return nil
}
