// Package session manages per-user book sessions and reading cursors.
//
// A session pairs two records with different lifecycles: the paginated Book,
// rebuilt in memory on every upload and lost on restart, and the reading
// cursor, persisted in a CursorStore. The Manager owns both and is the only
// writer for either, so the pair can never be observed half-updated.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkrz/folio/internal/extract"
	"github.com/mkrz/folio/internal/models"
	"github.com/mkrz/folio/internal/paginate"
	"github.com/mkrz/folio/internal/storage"
	"github.com/mkrz/folio/pkg/utils"
)

// ErrNoSession means navigation or render was requested for a user with no
// in-memory book, e.g. after a restart. Callers degrade gracefully: prompt
// for a re-upload or rebuild the session from the stored book file.
var ErrNoSession = errors.New("no active book session")

// Session holds a user's paginated book plus the identifier of the render
// surface currently displaying it, so the presentation layer updates in
// place instead of emitting new messages.
type Session struct {
	Book      *models.Book
	SurfaceID string
}

// Manager owns all per-user sessions. Operations for different users run
// concurrently; operations for one user are serialized on a per-user lock so
// navigation never interleaves with a book replacement.
type Manager struct {
	store     storage.CursorStore
	paginator *paginate.Paginator
	logger    *zap.Logger // optional; when set, logs session events

	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	mu      sync.Mutex
	session *Session // nil when no book is loaded
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets a logger for debug output (books opened, pages turned).
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a session manager backed by the given cursor store.
func NewManager(store storage.CursorStore, paginator *paginate.Paginator, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		paginator: paginator,
		users:     make(map[string]*userState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// user returns the lock-carrying state for a user, creating it on first use.
// The state outlives resets so the per-user lock stays stable.
func (m *Manager) user(userID string) *userState {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		u = &userState{}
		m.users[userID] = u
	}
	return u
}

// Open paginates an extracted book and installs it as the user's session,
// resetting the reading cursor to page 0. The cursor write and the session
// replacement happen under the user's lock as one unit: no navigation event
// can observe the new book with the old cursor or vice versa. On any error
// the previous session, if any, remains intact.
func (m *Manager) Open(ctx context.Context, userID string, src *extract.BookSource) (*models.RenderView, error) {
	u := m.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	book, err := m.buildBook(src)
	if err != nil {
		return nil, err
	}
	if err := m.store.Upsert(ctx, userID, 0); err != nil {
		return nil, fmt.Errorf("reset cursor: %w", err)
	}
	u.session = &Session{Book: book, SurfaceID: uuid.New().String()}
	if m.logger != nil {
		m.logger.Info("book opened",
			zap.String("user", userID),
			zap.String("title", book.Title),
			zap.Int("pages", len(book.Pages)))
	}
	return models.NewRenderView(book, 0, u.session.SurfaceID), nil
}

// Restore rebuilds a user's session from a re-extracted source without
// resetting the cursor, clamping the stored index into the new book's range.
// Used after a restart, when the durable cursor outlives the in-memory book.
func (m *Manager) Restore(ctx context.Context, userID string, src *extract.BookSource) (*models.RenderView, error) {
	u := m.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	book, err := m.buildBook(src)
	if err != nil {
		return nil, err
	}
	index, err := m.readIndex(ctx, userID, book)
	if err != nil {
		return nil, err
	}
	u.session = &Session{Book: book, SurfaceID: uuid.New().String()}
	if m.logger != nil {
		m.logger.Info("book restored",
			zap.String("user", userID),
			zap.String("title", book.Title),
			zap.Int("page_index", index))
	}
	return models.NewRenderView(book, index, u.session.SurfaceID), nil
}

func (m *Manager) buildBook(src *extract.BookSource) (*models.Book, error) {
	pages := m.paginator.Paginate(src.Blocks)
	if len(pages) == 0 {
		return nil, extract.ErrEmptyDocument
	}
	title := src.Title
	if title == "" {
		title = models.DefaultTitle
	}
	author := src.Creator
	if author == "" {
		author = models.DefaultAuthor
	}
	return &models.Book{Title: title, Author: author, Pages: pages}, nil
}

// readIndex loads the stored index and clamps it into the book's range,
// persisting the clamped value when the stored one is stale or absent.
func (m *Manager) readIndex(ctx context.Context, userID string, book *models.Book) (int, error) {
	stored, err := m.store.Get(ctx, userID)
	if errors.Is(err, storage.ErrCursorNotFound) {
		stored = 0
		err = nil
	}
	if err != nil {
		return 0, fmt.Errorf("read cursor: %w", err)
	}
	index := book.ClampIndex(stored)
	if index != stored {
		if m.logger != nil {
			m.logger.Warn("stale cursor clamped",
				zap.String("user", userID),
				zap.Int("stored", stored),
				zap.Int("clamped", index))
		}
		if err := m.store.Upsert(ctx, userID, index); err != nil {
			return 0, fmt.Errorf("persist clamped cursor: %w", err)
		}
	}
	return index, nil
}

// Render returns the view for the user's current page without moving the
// cursor. Returns ErrNoSession when no book is loaded.
func (m *Manager) Render(ctx context.Context, userID string) (*models.RenderView, error) {
	u := m.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.session == nil {
		return nil, ErrNoSession
	}
	index, err := m.readIndex(ctx, userID, u.session.Book)
	if err != nil {
		return nil, err
	}
	return models.NewRenderView(u.session.Book, index, u.session.SurfaceID), nil
}

// Navigate applies one navigation intent. Advance and retreat are no-ops at
// the book's boundaries and persist the new index before rendering; reset
// deletes both the session and the cursor and returns a nil view.
func (m *Manager) Navigate(ctx context.Context, userID string, action models.Action) (*models.RenderView, error) {
	u := m.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if action == models.ActionReset {
		return nil, m.resetLocked(ctx, userID, u)
	}
	if u.session == nil {
		return nil, ErrNoSession
	}
	book := u.session.Book
	index, err := m.readIndex(ctx, userID, book)
	if err != nil {
		return nil, err
	}

	next := index
	switch action {
	case models.ActionAdvance:
		if next < len(book.Pages)-1 {
			next++
		}
	case models.ActionRetreat:
		if next > 0 {
			next--
		}
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}

	if next != index {
		// The cursor write is a state mutation: if it fails we must not
		// pretend the page turned.
		if err := m.store.Upsert(ctx, userID, next); err != nil {
			return nil, fmt.Errorf("persist cursor: %w", err)
		}
	}
	view := models.NewRenderView(book, next, u.session.SurfaceID)
	if m.logger != nil {
		m.logger.Debug("page rendered",
			zap.String("user", userID),
			zap.String("action", string(action)),
			zap.Int("page", view.PageNumber),
			zap.Int("total", view.TotalPages),
			zap.String("preview", utils.Truncate(view.PageText, 60)))
	}
	return view, nil
}

// Reset discards the user's session and deletes the cursor. The next event
// for the user must be a fresh upload.
func (m *Manager) Reset(ctx context.Context, userID string) error {
	u := m.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	return m.resetLocked(ctx, userID, u)
}

func (m *Manager) resetLocked(ctx context.Context, userID string, u *userState) error {
	if err := m.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete cursor: %w", err)
	}
	u.session = nil
	if m.logger != nil {
		m.logger.Info("session reset", zap.String("user", userID))
	}
	return nil
}

// ActiveSessions returns how many users currently have a book loaded.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		u.mu.Lock()
		if u.session != nil {
			n++
		}
		u.mu.Unlock()
	}
	return n
}
