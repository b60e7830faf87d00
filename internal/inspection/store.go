package inspection

import (
	"encoding/json"
	"os"

	apperrors "go-inspection-gateway/internal/errors"
	"go-inspection-gateway/internal/logger"
)

// DefaultTypeID is the built-in inspection type that can never be deleted.
const DefaultTypeID = "rebar"

const cacheKey = "inspection_types"

// TypesDocument mirrors the on-disk configuration. Type payloads are kept
// opaque: the gateway stores and serves them, the front-end owns their shape.
type TypesDocument struct {
	InspectionTypes map[string]json.RawMessage `json:"inspectionTypes"`
	CurrentType     string                     `json:"currentType"`
}

// Store persists inspection-type configuration to a JSON file, fronted by the
// TTL cache. The cache is passed in explicitly; a write fully replaces the
// cached document (last-write-wins).
type Store struct {
	path  string
	cache *Cache
}

func NewStore(path string, cache *Cache) *Store {
	return &Store{path: path, cache: cache}
}

// Get returns the current document, serving the cache when fresh.
func (s *Store) Get() (*TypesDocument, error) {
	if cached, ok := s.cache.Get(cacheKey).(*TypesDocument); ok && cached != nil {
		logger.Debug("Serving inspection types from cache")
		return cached, nil
	}

	doc, err := s.readFile()
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey, doc)
	return doc, nil
}

// Save validates and writes the document, then refreshes the cache.
func (s *Store) Save(doc *TypesDocument) error {
	if doc == nil || doc.InspectionTypes == nil {
		return apperrors.NewValidationError("缺少檢查類型數據", nil)
	}
	if doc.CurrentType == "" {
		return apperrors.NewValidationError("缺少當前類型設定", nil)
	}
	if err := s.writeFile(doc); err != nil {
		return err
	}
	s.cache.Set(cacheKey, doc)
	return nil
}

// Delete removes a type by id. The default type is non-deletable; deleting
// the active type resets the active type to the default.
func (s *Store) Delete(typeID string) (*TypesDocument, error) {
	doc, err := s.readFile()
	if err != nil {
		return nil, err
	}

	if _, ok := doc.InspectionTypes[typeID]; !ok {
		return nil, apperrors.NewNotFoundError("檢查類型不存在", nil)
	}
	if typeID == DefaultTypeID {
		return nil, apperrors.NewValidationError("無法刪除預設的鋼筋檢查類型", nil)
	}

	delete(doc.InspectionTypes, typeID)
	if doc.CurrentType == typeID {
		doc.CurrentType = DefaultTypeID
	}

	if err := s.writeFile(doc); err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey, doc)
	return doc, nil
}

func (s *Store) readFile() (*TypesDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewInternalError("無法讀取檢查類型數據", err)
	}
	var doc TypesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewInternalError("無法讀取檢查類型數據", err)
	}
	return &doc, nil
}

func (s *Store) writeFile(doc *TypesDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperrors.NewInternalError("無法儲存檢查類型數據", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return apperrors.NewInternalError("無法儲存檢查類型數據", err)
	}
	return nil
}
