// Package learn records field names discovered in upstream responses.
// Only names are stored, never values; the whole subsystem is best-effort
// and must never affect the response path.
package learn

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	entityKeyPrefix = "learn:entity:"
	indexKey        = "learn:index:v1"

	// maxSampleRows bounds how many rows of a response are inspected.
	maxSampleRows = 5

	// rewriteIntervalMs forces a record refresh even without new fields.
	rewriteIntervalMs = 24 * 60 * 60 * 1000
)

// EntityRecord is the stored schema summary for one entity.
type EntityRecord struct {
	Fields      []string `json:"fields"`
	FieldCount  int      `json:"fieldCount"`
	SampleCount int      `json:"sampleCount"`
	LastSeenIso string   `json:"lastSeenIso"`
	LastWriteMs int64    `json:"lastWriteMs"`
}

// Index lists every entity with a stored record, lexicographically.
type Index struct {
	Entities    []string `json:"entities"`
	LastWriteMs int64    `json:"lastWriteMs"`
}

// Summary is the $learn-summary response for the whole index.
type Summary struct {
	LearningEnabled bool            `json:"learningEnabled"`
	EntityCount     int             `json:"entityCount"`
	Entities        []string        `json:"entities"`
	Records         []*EntityRecord `json:"records"`
}

// Learner observes response bodies and maintains the learn keyspace.
type Learner struct {
	store   Store
	enabled bool
	log     *zap.Logger
	now     func() time.Time
	wg      sync.WaitGroup
	// mu serialises the read-modify-write cycles of concurrent observations.
	mu sync.Mutex
}

// New builds a Learner. It is inert unless enabled is true and store is
// non-nil.
func New(store Store, enabled bool, log *zap.Logger) *Learner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Learner{store: store, enabled: enabled, log: log, now: time.Now}
}

// Enabled reports whether observations will be recorded.
func (l *Learner) Enabled() bool {
	return l != nil && l.enabled && l.store != nil
}

// HasStore reports whether a KV handle is configured.
func (l *Learner) HasStore() bool {
	return l != nil && l.store != nil
}

// Observe schedules background learning for a response body. It returns
// immediately; failures are logged and swallowed.
func (l *Learner) Observe(entity string, body []byte) {
	if !l.Enabled() || entity == "" {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				l.log.Debug("learner panic swallowed", zap.Any("panic", rec))
			}
		}()
		if err := l.learn(context.Background(), entity, body); err != nil {
			l.log.Debug("learner write skipped", zap.String("entity", entity), zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight observations finish. Test hook.
func (l *Learner) Wait() {
	l.wg.Wait()
}

func (l *Learner) learn(ctx context.Context, entity string, body []byte) error {
	value := gjson.GetBytes(body, "value")
	if !value.IsArray() {
		return nil
	}
	rows := value.Array()
	if len(rows) == 0 {
		return nil
	}

	sampled := len(rows)
	if sampled > maxSampleRows {
		sampled = maxSampleRows
	}

	discovered := make(map[string]struct{})
	for _, row := range rows[:sampled] {
		if !row.IsObject() {
			continue
		}
		row.ForEach(func(key, _ gjson.Result) bool {
			name := key.String()
			if !strings.HasPrefix(name, "@odata.") {
				discovered[name] = struct{}{}
			}
			return true
		})
	}
	if len(discovered) == 0 {
		return nil
	}

	lc := strings.ToLower(entity)
	nowMs := l.now().UnixMilli()

	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.readRecord(ctx, lc)
	if err != nil {
		return err
	}

	merged := make(map[string]struct{}, len(discovered))
	if existing != nil {
		for _, f := range existing.Fields {
			merged[f] = struct{}{}
		}
	}
	newField := false
	for f := range discovered {
		if _, ok := merged[f]; !ok {
			merged[f] = struct{}{}
			newField = true
		}
	}

	stale := existing == nil || nowMs-existing.LastWriteMs > rewriteIntervalMs
	if newField || stale {
		fields := make([]string, 0, len(merged))
		for f := range merged {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		record := &EntityRecord{
			Fields:      fields,
			FieldCount:  len(fields),
			SampleCount: sampled,
			LastSeenIso: l.now().UTC().Format(time.RFC3339),
			LastWriteMs: nowMs,
		}
		payload, err := sonic.Marshal(record)
		if err != nil {
			return err
		}
		if err := l.store.Set(ctx, entityKeyPrefix+lc, payload); err != nil {
			return err
		}
	}

	return l.updateIndex(ctx, lc, nowMs)
}

func (l *Learner) readRecord(ctx context.Context, lcEntity string) (*EntityRecord, error) {
	raw, ok, err := l.store.Get(ctx, entityKeyPrefix+lcEntity)
	if err != nil || !ok {
		return nil, err
	}
	var record EntityRecord
	if err := sonic.Unmarshal(raw, &record); err != nil {
		// A corrupt record is treated as absent and rewritten.
		return nil, nil
	}
	return &record, nil
}

func (l *Learner) updateIndex(ctx context.Context, lcEntity string, nowMs int64) error {
	var index Index
	if raw, ok, err := l.store.Get(ctx, indexKey); err != nil {
		return err
	} else if ok {
		if err := sonic.Unmarshal(raw, &index); err != nil {
			index = Index{}
		}
	}

	for _, e := range index.Entities {
		if e == lcEntity {
			return nil
		}
	}

	index.Entities = append(index.Entities, lcEntity)
	sort.Strings(index.Entities)
	index.LastWriteMs = nowMs

	payload, err := sonic.Marshal(&index)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, indexKey, payload)
}

// Record fetches the stored record for one entity; nil when absent.
func (l *Learner) Record(ctx context.Context, entity string) (*EntityRecord, error) {
	return l.readRecord(ctx, strings.ToLower(entity))
}

// Summarize reads the index and fetches every referenced record in
// parallel.
func (l *Learner) Summarize(ctx context.Context) (*Summary, error) {
	var index Index
	if raw, ok, err := l.store.Get(ctx, indexKey); err != nil {
		return nil, err
	} else if ok {
		if err := sonic.Unmarshal(raw, &index); err != nil {
			index = Index{}
		}
	}

	results := make([]*EntityRecord, len(index.Entities))
	var wg sync.WaitGroup
	for i, entity := range index.Entities {
		wg.Add(1)
		go func(i int, entity string) {
			defer wg.Done()
			record, err := l.readRecord(ctx, entity)
			if err != nil {
				l.log.Debug("learn record read failed", zap.String("entity", entity), zap.Error(err))
				return
			}
			results[i] = record
		}(i, entity)
	}
	wg.Wait()

	records := make([]*EntityRecord, 0, len(results))
	for _, r := range results {
		if r != nil {
			records = append(records, r)
		}
	}

	return &Summary{
		LearningEnabled: l.Enabled(),
		EntityCount:     len(index.Entities),
		Entities:        index.Entities,
		Records:         records,
	}, nil
}
