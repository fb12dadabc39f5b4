package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/aestimo/internal/interfaces"
	"github.com/ternarybob/aestimo/internal/models"
)

// MemoryStorageManager backs the pipeline with map-based storages for tests.
type MemoryStorageManager struct {
	fingerprints *MemoryFingerprintStorage
	records      *MemoryAnalysisStorage
	checklists   *MemoryChecklistStorage
}

func NewMemoryStorageManager() *MemoryStorageManager {
	return &MemoryStorageManager{
		fingerprints: &MemoryFingerprintStorage{entries: make(map[string]*models.FingerprintEntry)},
		records:      &MemoryAnalysisStorage{records: make(map[string]*models.AnalysisRecord)},
		checklists:   &MemoryChecklistStorage{items: make(map[string]*models.ChecklistItem)},
	}
}

func (m *MemoryStorageManager) FingerprintStorage() interfaces.FingerprintStorage {
	return m.fingerprints
}
func (m *MemoryStorageManager) AnalysisStorage() interfaces.AnalysisStorage { return m.records }
func (m *MemoryStorageManager) ChecklistStorage() interfaces.ChecklistStorage {
	return m.checklists
}
func (m *MemoryStorageManager) Close() error { return nil }

type MemoryFingerprintStorage struct {
	mu      sync.Mutex
	entries map[string]*models.FingerprintEntry
	failing bool
}

func (s *MemoryFingerprintStorage) Lookup(ctx context.Context, fingerprint, version string) (*models.FingerprintEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return nil, fmt.Errorf("%w: store offline", interfaces.ErrCacheUnavailable)
	}
	entry, ok := s.entries[models.FingerprintKey(fingerprint, version)]
	if !ok {
		return nil, interfaces.ErrFingerprintNotFound
	}
	entry.LastAccessedAt = time.Now()
	return entry, nil
}

func (s *MemoryFingerprintStorage) Put(ctx context.Context, entry *models.FingerprintEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return fmt.Errorf("%w: store offline", interfaces.ErrCacheUnavailable)
	}
	stored := *entry
	stored.UpdatedAt = time.Now()
	if existing, ok := s.entries[entry.Key()]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = stored.UpdatedAt
	}
	s.entries[entry.Key()] = &stored
	return nil
}

func (s *MemoryFingerprintStorage) Sweep(ctx context.Context, keepVersion string, accessedBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		if entry.ProcessingVersion != keepVersion || entry.LastAccessedAt.Before(accessedBefore) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

type MemoryAnalysisStorage struct {
	mu      sync.Mutex
	records map[string]*models.AnalysisRecord
}

func (s *MemoryAnalysisStorage) Get(ctx context.Context, documentID, version string) (*models.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[models.AnalysisKey(documentID, version)]
	if !ok {
		return nil, interfaces.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryAnalysisStorage) Save(ctx context.Context, record *models.AnalysisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[record.Key()] = &copied
	return nil
}

func (s *MemoryAnalysisStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, record := range s.records {
		if record.DocumentID == documentID {
			delete(s.records, key)
		}
	}
	return nil
}

type MemoryChecklistStorage struct {
	mu      sync.Mutex
	items   map[string]*models.ChecklistItem
	nextSeq uint64
}

func (s *MemoryChecklistStorage) Upsert(ctx context.Context, item *models.ChecklistItem) (*models.ChecklistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *item
	stored.CriteriaText = models.NormalizeCriteria(item.CriteriaText)
	if stored.Status == "" {
		stored.Status = models.ChecklistPending
	}
	key := stored.Key()
	now := time.Now()
	if existing, ok := s.items[key]; ok {
		stored.Seq = existing.Seq
		stored.CreatedAt = existing.CreatedAt
	} else {
		s.nextSeq++
		stored.Seq = s.nextSeq
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.items[key] = &stored
	return &stored, nil
}

func (s *MemoryChecklistStorage) List(ctx context.Context, documentID, userID string) ([]models.ChecklistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ChecklistItem
	for _, item := range s.items {
		if item.DocumentID == documentID && item.UserID == userID {
			out = append(out, *item)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Seq < out[i].Seq {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *MemoryChecklistStorage) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if item.DocumentID == documentID {
			delete(s.items, key)
		}
	}
	return nil
}

func (s *MemoryChecklistStorage) DeleteByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.items {
		if item.UserID == userID {
			delete(s.items, key)
		}
	}
	return nil
}

// MockGateway serves scripted extraction and recommendation responses.
type MockGateway struct {
	mu             sync.Mutex
	extractResult  *models.ExtractionResult
	extractErr     error
	extractCalls   int
	recommendCalls int
	failFor        map[string]error
	recs           map[string][]models.Recommendation
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		failFor: make(map[string]error),
		recs:    make(map[string][]models.Recommendation),
	}
}

func (m *MockGateway) Extract(ctx context.Context, documentText string) (*models.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractCalls++
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	// Hand out a deep-enough copy so pipeline mutation never leaks back.
	result := &models.ExtractionResult{
		Summaries: make(map[models.Department]models.SummaryFields, len(m.extractResult.Summaries)),
		Items:     make([]models.ExtractedItem, len(m.extractResult.Items)),
	}
	for dept, fields := range m.extractResult.Summaries {
		copied := make(models.SummaryFields, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		result.Summaries[dept] = copied
	}
	copy(result.Items, m.extractResult.Items)
	return result, nil
}

func (m *MockGateway) Recommend(ctx context.Context, item models.ExtractedItem) ([]models.Recommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendCalls++
	if err, ok := m.failFor[item.Name]; ok {
		return nil, err
	}
	if recs, ok := m.recs[item.Name]; ok {
		return recs, nil
	}
	return []models.Recommendation{{Vendor: "ACME", Model: "A-100", MatchScore: 75}}, nil
}

func (m *MockGateway) Calls() (extract, recommend int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extractCalls, m.recommendCalls
}
