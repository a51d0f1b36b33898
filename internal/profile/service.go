package profile

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"interview-relay/internal/shared/storage/object"
	"interview-relay/internal/shared/telemetry"
)

const (
	docxExt         = ".docx"
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	resumeNamespace = "resumes"
)

// Extractor turns an uploaded document into plain text.
type Extractor func(ctx context.Context, data []byte, fileName string) (string, error)

// Service owns the process-wide profile cache. Reads are served from the
// cache; every write goes to disk first.
type Service struct {
	store   Store
	objects object.ObjectStore
	extract Extractor

	mu    sync.RWMutex
	cache Profile
}

// NewService loads the profile once. objects and extract may be nil; uploads
// then skip archiving or fail with ErrNoExtractor.
func NewService(ctx context.Context, store Store, objects object.ObjectStore, extract Extractor) (*Service, error) {
	p, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, objects: objects, extract: extract, cache: p}, nil
}

// Current returns a copy of the cached profile.
func (s *Service) Current() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Clone()
}

// Reload re-reads the profile from disk and refreshes the cache. On failure
// the cache is left untouched.
func (s *Service) Reload(ctx context.Context) (Profile, error) {
	p, err := s.store.Load(ctx)
	if err != nil {
		return Profile{}, err
	}
	s.mu.Lock()
	s.cache = p
	s.mu.Unlock()
	return p.Clone(), nil
}

// Replace overwrites the whole profile.
func (s *Service) Replace(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, p); err != nil {
		return err
	}
	s.cache = p.Clone()
	telemetry.Info("profile.saved", map[string]any{
		"resume_chars":  len(p.ResumeText),
		"metadata_keys": len(p.Metadata),
		"has_api_key":   p.APIKey != "",
	})
	return nil
}

// Update applies fn to a copy of the profile and persists the result.
func (s *Service) Update(ctx context.Context, fn func(*Profile)) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cache.Clone()
	fn(&next)
	if err := s.store.Save(ctx, next); err != nil {
		return Profile{}, err
	}
	s.cache = next
	return next.Clone(), nil
}

// APIKey returns the stored credential, or fallback when none is set.
func (s *Service) APIKey(fallback string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key := strings.TrimSpace(s.cache.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(fallback)
}

// ExtractResume validates and extracts an uploaded .docx without touching
// any state.
func (s *Service) ExtractResume(ctx context.Context, fileName string, data []byte) (string, error) {
	if !strings.EqualFold(filepath.Ext(fileName), docxExt) {
		return "", ErrUnsupportedFile
	}
	if s.extract == nil {
		return "", ErrNoExtractor
	}
	text, err := s.extract(ctx, data, fileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtract, err)
	}
	return text, nil
}

// UploadResume extracts the resume text, archives the original and stores
// the text in the profile. Only resume_text changes.
func (s *Service) UploadResume(ctx context.Context, fileName string, data []byte) (string, error) {
	text, err := s.ExtractResume(ctx, fileName, data)
	if err != nil {
		return "", err
	}

	if s.objects != nil {
		key, err := object.NewKey(resumeNamespace, fileName, time.Now().UTC())
		if err != nil {
			return "", fmt.Errorf("archive key: %w", err)
		}
		if _, err := s.objects.SaveWithKey(ctx, key, docxContentType, bytes.NewReader(data)); err != nil {
			return "", fmt.Errorf("archive resume: %w", err)
		}
		telemetry.Info("profile.resume.archived", map[string]any{"key": key, "bytes": len(data)})
	}

	if _, err := s.Update(ctx, func(p *Profile) { p.ResumeText = text }); err != nil {
		return "", err
	}
	return text, nil
}
