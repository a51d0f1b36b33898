package sessions

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"interview-relay/internal/conversation"
	"interview-relay/internal/profile"
	"interview-relay/internal/shared/telemetry"
	"interview-relay/internal/shared/util"
)

// Profiles is the part of the profile service sessions write through to.
type Profiles interface {
	ExtractResume(ctx context.Context, fileName string, data []byte) (string, error)
	Update(ctx context.Context, fn func(*profile.Profile)) (profile.Profile, error)
}

// Manager owns the current-session pointer and ties the session store to
// the rolling history and the profile.
type Manager struct {
	store    Store
	history  *conversation.History
	profiles Profiles

	mu      sync.RWMutex
	current string
}

// NewManager constructs a Manager with no current session.
func NewManager(store Store, history *conversation.History, profiles Profiles) *Manager {
	return &Manager{store: store, history: history, profiles: profiles}
}

// SaveInput carries the fields written by a session save.
type SaveInput struct {
	Name            string
	JobDescription  string
	ResumeText      string
	ModelPreference string
	APIKey          string
	CreatedAt       time.Time
}

func cleanName(name string) (string, error) {
	clean, err := util.SafeName(name)
	if err != nil {
		return "", ErrInvalidName
	}
	return clean, nil
}

// Current returns the current session name, or "".
func (m *Manager) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) setCurrent(name string) {
	m.mu.Lock()
	m.current = name
	m.mu.Unlock()
}

// Create makes a session current and clears the rolling history. An
// existing session of the same name is reopened; existed reports that.
func (m *Manager) Create(ctx context.Context, name string) (sess Session, existed bool, err error) {
	name, err = cleanName(name)
	if err != nil {
		return Session{}, false, err
	}
	sess, err = m.store.Create(ctx, name, time.Now().UTC())
	if errors.Is(err, ErrExists) {
		existed = true
		sess, err = m.store.Get(ctx, name)
	}
	if err != nil {
		return Session{}, false, err
	}

	m.setCurrent(name)
	m.history.Clear()
	telemetry.Info("session.created", map[string]any{"session": name, "existed": existed})
	return sess, existed, nil
}

func (m *Manager) getOrCreate(ctx context.Context, name string) (Session, error) {
	sess, err := m.store.Get(ctx, name)
	if errors.Is(err, ErrNotFound) {
		sess, err = m.store.Create(ctx, name, time.Now().UTC())
		if errors.Is(err, ErrExists) {
			return m.store.Get(ctx, name)
		}
	}
	return sess, err
}

// UploadResume stores a .docx on the session, copies its text into the
// session and the profile, and makes the session current.
func (m *Manager) UploadResume(ctx context.Context, name, fileName string, data []byte) (Session, string, error) {
	name, err := cleanName(name)
	if err != nil {
		return Session{}, "", err
	}
	text, err := m.profiles.ExtractResume(ctx, fileName, data)
	if err != nil {
		return Session{}, "", err
	}

	sess, err := m.getOrCreate(ctx, name)
	if err != nil {
		return Session{}, "", err
	}
	if err := m.store.SaveResume(ctx, name, data); err != nil {
		return Session{}, "", err
	}
	sess.ResumeText = text
	sess.ResumeFile = ResumeFileName
	sess.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, "", err
	}
	if _, err := m.profiles.Update(ctx, func(p *profile.Profile) { p.ResumeText = text }); err != nil {
		return Session{}, "", err
	}

	m.setCurrent(name)
	telemetry.Info("session.resume.uploaded", map[string]any{"session": name, "chars": len(text)})
	return sess, text, nil
}

// Save writes session metadata. A non-empty job description or API key is
// also written to the profile. The key itself is never stored on the
// session.
func (m *Manager) Save(ctx context.Context, in SaveInput) (Session, error) {
	name, err := cleanName(in.Name)
	if err != nil {
		return Session{}, err
	}
	sess, err := m.getOrCreate(ctx, name)
	if err != nil {
		return Session{}, err
	}

	sess.JobDescription = in.JobDescription
	sess.ResumeText = in.ResumeText
	sess.ModelPreference = in.ModelPreference
	if !in.CreatedAt.IsZero() {
		sess.CreatedAt = in.CreatedAt.UTC()
	}
	sess.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}

	jd := strings.TrimSpace(in.JobDescription)
	key := strings.TrimSpace(in.APIKey)
	if jd != "" || key != "" {
		_, err := m.profiles.Update(ctx, func(p *profile.Profile) {
			if jd != "" {
				p.JobDescription = jd
			}
			if key != "" {
				p.APIKey = key
			}
		})
		if err != nil {
			return Session{}, err
		}
	}
	telemetry.Info("session.saved", map[string]any{"session": name})
	return sess, nil
}

// Append logs one entry to the named session, or the current one when name
// is empty.
func (m *Manager) Append(ctx context.Context, name string, e Entry) (string, error) {
	target, err := m.target(name)
	if err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return target, m.store.AppendEntries(ctx, target, e)
}

// LogExchange appends a completed exchange to the current session. It
// reports false without error when no session is current.
func (m *Manager) LogExchange(ctx context.Context, ex conversation.Exchange) (bool, error) {
	name := m.Current()
	if name == "" {
		return false, nil
	}
	if err := m.store.AppendEntries(ctx, name, entryFrom(ex)); err != nil {
		return false, err
	}
	return true, nil
}

// End flushes rolling-history exchanges not yet logged into the target
// session, then clears the pointer and the history.
func (m *Manager) End(ctx context.Context, name string) (string, int, error) {
	target, err := m.target(name)
	if err != nil && !errors.Is(err, ErrNoSession) {
		return "", 0, err
	}

	flushed := 0
	if target != "" {
		pending, mark := m.history.Unlogged()
		entries := make([]Entry, 0, len(pending))
		for _, ex := range pending {
			entries = append(entries, entryFrom(ex))
		}
		if err := m.store.AppendEntries(ctx, target, entries...); err != nil {
			return target, 0, err
		}
		m.history.MarkLogged(mark)
		flushed = len(entries)
	}

	m.setCurrent("")
	m.history.Clear()
	telemetry.Info("session.ended", map[string]any{"session": target, "flushed": flushed})
	return target, flushed, nil
}

// List returns session summaries, newest first.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	out := make([]Summary, 0, len(all))
	for _, s := range all {
		out = append(out, summarize(s))
	}
	return out, nil
}

// Load returns a session and its log without changing the pointer.
func (m *Manager) Load(ctx context.Context, name string) (Session, []Entry, error) {
	name, err := cleanName(name)
	if err != nil {
		return Session{}, nil, err
	}
	sess, err := m.store.Get(ctx, name)
	if err != nil {
		return Session{}, nil, err
	}
	log, err := m.store.Conversation(ctx, name)
	if err != nil {
		return Session{}, nil, err
	}
	return sess, log, nil
}

// Delete removes a session and clears the pointer if it was current.
func (m *Manager) Delete(ctx context.Context, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, name); err != nil {
		return err
	}
	m.mu.Lock()
	if m.current == name {
		m.current = ""
	}
	m.mu.Unlock()
	telemetry.Info("session.deleted", map[string]any{"session": name})
	return nil
}

// ClearHistory empties the rolling history only.
func (m *Manager) ClearHistory() {
	m.history.Clear()
}

func (m *Manager) target(name string) (string, error) {
	if strings.TrimSpace(name) != "" {
		return cleanName(name)
	}
	if cur := m.Current(); cur != "" {
		return cur, nil
	}
	return "", ErrNoSession
}

func entryFrom(ex conversation.Exchange) Entry {
	return Entry{
		ID:            uuid.NewString(),
		Timestamp:     ex.At,
		Question:      ex.Question,
		Response:      ex.Response,
		HadScreenshot: ex.HadScreenshot,
	}
}
