package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"interview-relay/internal/shared/util"
)

const (
	sessionFileName      = "session.json"
	conversationFileName = "conversation.json"
	// ResumeFileName is the stored original of a session's resume.
	ResumeFileName = "resume.docx"
)

// FileStore keeps one directory per session under root.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir}
}

func (s *FileStore) dir(name string) (string, error) {
	clean, err := util.SafeName(name)
	if err != nil || clean != name {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, clean), nil
}

// Create makes the session directory with empty metadata and log.
func (s *FileStore) Create(ctx context.Context, name string, now time.Time) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	dir, err := s.dir(name)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return Session{}, fmt.Errorf("create sessions dir: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Session{}, ErrExists
		}
		return Session{}, fmt.Errorf("create session dir: %w", err)
	}

	sess := Session{Name: name, CreatedAt: now, UpdatedAt: now}
	if err := writeJSON(filepath.Join(dir, sessionFileName), sess); err != nil {
		return Session{}, err
	}
	if err := writeJSON(filepath.Join(dir, conversationFileName), []Entry{}); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Get reads session metadata. A directory without metadata yields a bare
// session dated by the directory's modification time.
func (s *FileStore) Get(ctx context.Context, name string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	dir, err := s.dir(name)
	if err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readSession(dir, name)
}

func readSession(dir, name string) (Session, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("stat session: %w", err)
	}
	if !info.IsDir() {
		return Session{}, ErrNotFound
	}

	var sess Session
	found, err := readJSON(filepath.Join(dir, sessionFileName), &sess)
	if err != nil {
		return Session{}, err
	}
	if !found {
		sess = Session{CreatedAt: info.ModTime().UTC(), UpdatedAt: info.ModTime().UTC()}
	}
	sess.Name = name
	return sess, nil
}

// Put writes session.json. A session that does not exist yet gets the full
// layout, including an empty conversation.json.
func (s *FileStore) Put(ctx context.Context, sess Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.dir(sess.Name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSON(filepath.Join(dir, sessionFileName), sess); err != nil {
		return err
	}
	logPath := filepath.Join(dir, conversationFileName)
	if _, err := os.Stat(logPath); errors.Is(err, fs.ErrNotExist) {
		return writeJSON(logPath, []Entry{})
	}
	return nil
}

// SaveResume writes the original resume next to the metadata.
func (s *FileStore) SaveResume(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(dir); err != nil {
		return ErrNotFound
	}
	if err := util.WriteFileAtomic(filepath.Join(dir, ResumeFileName), data); err != nil {
		return fmt.Errorf("save session resume: %w", err)
	}
	return nil
}

// AppendEntries rewrites conversation.json with entries appended.
func (s *FileStore) AppendEntries(ctx context.Context, name string, entries ...Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(dir); err != nil {
		return ErrNotFound
	}

	path := filepath.Join(dir, conversationFileName)
	var log []Entry
	if _, err := readJSON(path, &log); err != nil {
		return err
	}
	return writeJSON(path, append(log, entries...))
}

// Conversation returns the log in append order.
func (s *FileStore) Conversation(ctx context.Context, name string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.dir(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(dir); err != nil {
		return nil, ErrNotFound
	}
	log := []Entry{}
	if _, err := readJSON(filepath.Join(dir, conversationFileName), &log); err != nil {
		return nil, err
	}
	return log, nil
}

// List returns every readable session. Unreadable directories are skipped.
func (s *FileStore) List(ctx context.Context) ([]Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dirents, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Session, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		sess, err := readSession(filepath.Join(s.root, d.Name()), d.Name())
		if err != nil {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// Delete removes the session directory.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.dir(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(dir); err != nil {
		return ErrNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func readJSON(path string, out any) (bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := util.WriteFileAtomic(path, raw); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
