package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/film-festival/internal/model"
)

// errReadOnly is returned by writes issued inside View.
var errReadOnly = errors.New("write in read-only transaction")

type pairKey struct {
	a, b uint64
}

type memVote struct {
	ID        uint64
	CreatedAt time.Time
}

type memToken struct {
	UserID    uint64
	ExpiresAt time.Time
	Revoked   bool
}

// memState holds every table. Films are stored without their genre and
// provider slices; those are rebuilt from the link sets on read.
type memState struct {
	seq              map[string]uint64
	users            map[uint64]model.User
	tokens           map[string]memToken
	films            map[uint64]model.Film
	genres           map[uint64]model.Genre
	providers        map[uint64]model.Provider
	filmGenres       map[pairKey]struct{}
	filmProviders    map[pairKey]struct{}
	events           map[uint64]model.Event
	eventFilms       map[uint64]model.EventFilm
	upvotes          map[pairKey]memVote // (film, user)
	eventFilmUpvotes map[pairKey]memVote // (event film, user)
	ratings          map[uint64]model.Rating
}

func newMemState() *memState {
	return &memState{
		seq:              make(map[string]uint64),
		users:            make(map[uint64]model.User),
		tokens:           make(map[string]memToken),
		films:            make(map[uint64]model.Film),
		genres:           make(map[uint64]model.Genre),
		providers:        make(map[uint64]model.Provider),
		filmGenres:       make(map[pairKey]struct{}),
		filmProviders:    make(map[pairKey]struct{}),
		events:           make(map[uint64]model.Event),
		eventFilms:       make(map[uint64]model.EventFilm),
		upvotes:          make(map[pairKey]memVote),
		eventFilmUpvotes: make(map[pairKey]memVote),
		ratings:          make(map[uint64]model.Rating),
	}
}

// clone copies every map. Row values are copied by value; pointer
// fields inside them are never mutated in place.
func (st *memState) clone() *memState {
	return &memState{
		seq:              maps.Clone(st.seq),
		users:            maps.Clone(st.users),
		tokens:           maps.Clone(st.tokens),
		films:            maps.Clone(st.films),
		genres:           maps.Clone(st.genres),
		providers:        maps.Clone(st.providers),
		filmGenres:       maps.Clone(st.filmGenres),
		filmProviders:    maps.Clone(st.filmProviders),
		events:           maps.Clone(st.events),
		eventFilms:       maps.Clone(st.eventFilms),
		upvotes:          maps.Clone(st.upvotes),
		eventFilmUpvotes: maps.Clone(st.eventFilmUpvotes),
		ratings:          maps.Clone(st.ratings),
	}
}

func (st *memState) next(table string) uint64 {
	st.seq[table]++
	return st.seq[table]
}

// MemoryStore is an in-process Store. Transactions are serialized by a
// mutex and run against a copy of the state that replaces the live one
// only when fn succeeds.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	clock clockwork.Clock
}

// NewMemoryStore returns an empty store stamping rows with clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{state: newMemState(), clock: clock}
}

// RunInTx runs fn against a private copy of the state and publishes the
// copy when fn returns nil.
func (m *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(&memTx{st: work, clock: m.clock}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// View runs fn against the live state. Writes fail with errReadOnly.
func (m *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{st: m.state, clock: m.clock, readOnly: true})
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Tx    = (*memTx)(nil)
)

type memTx struct {
	st       *memState
	clock    clockwork.Clock
	readOnly bool
}

func (t *memTx) now() time.Time {
	return t.clock.Now().UTC().Truncate(time.Second)
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// --- films ---

func (t *memTx) loadFilm(f model.Film) *model.Film {
	f.Genres = []model.Genre{}
	f.Providers = []model.Provider{}
	for k := range t.st.filmGenres {
		if k.a == f.ID {
			f.Genres = append(f.Genres, t.st.genres[k.b])
		}
	}
	for k := range t.st.filmProviders {
		if k.a == f.ID {
			f.Providers = append(f.Providers, t.st.providers[k.b])
		}
	}
	sort.Slice(f.Genres, func(i, j int) bool { return f.Genres[i].Name < f.Genres[j].Name })
	sort.Slice(f.Providers, func(i, j int) bool { return f.Providers[i].Name < f.Providers[j].Name })
	return &f
}

func (t *memTx) GetFilm(_ context.Context, id uint64) (*model.Film, error) {
	f, ok := t.st.films[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.loadFilm(f), nil
}

func (t *memTx) LockFilm(ctx context.Context, id uint64) (*model.Film, error) {
	return t.GetFilm(ctx, id)
}

func (t *memTx) GetFilmByImdbID(_ context.Context, imdbID string) (*model.Film, error) {
	for _, f := range t.st.films {
		if f.ImdbID != nil && *f.ImdbID == imdbID {
			return t.loadFilm(f), nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) LockFilmByImdbID(ctx context.Context, imdbID string) (*model.Film, error) {
	return t.GetFilmByImdbID(ctx, imdbID)
}

func (t *memTx) CreateFilm(_ context.Context, f *model.Film) error {
	if err := t.writable(); err != nil {
		return err
	}
	if f.ImdbID != nil {
		for _, other := range t.st.films {
			if other.ImdbID != nil && *other.ImdbID == *f.ImdbID {
				return fmt.Errorf("insert film: %w: imdb_id %s", ErrDuplicate, *f.ImdbID)
			}
		}
	}
	row := *f
	row.ID = t.st.next("films")
	row.Watched = false
	row.WatchedDate = nil
	row.TotalUpvotes = 0
	row.CreatedAt = t.now()
	row.Genres, row.Providers = nil, nil
	if f.ImdbID != nil {
		id := *f.ImdbID
		row.ImdbID = &id
	}
	if f.ProposedBy != nil {
		by := *f.ProposedBy
		row.ProposedBy = &by
	}
	t.st.films[row.ID] = row

	f.ID, f.Watched, f.WatchedDate, f.TotalUpvotes, f.CreatedAt = row.ID, false, nil, 0, row.CreatedAt
	if f.Genres == nil {
		f.Genres = []model.Genre{}
	}
	if f.Providers == nil {
		f.Providers = []model.Provider{}
	}
	return nil
}

func (t *memTx) UpdateFilmMetadata(_ context.Context, id uint64, md model.FilmMetadata) error {
	if err := t.writable(); err != nil {
		return err
	}
	f, ok := t.st.films[id]
	if !ok {
		return ErrNotFound
	}
	f.SetMetadata(md)
	t.st.films[id] = f
	return nil
}

func (t *memTx) SetFilmWatched(_ context.Context, id uint64, at time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	f, ok := t.st.films[id]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	f.Watched = true
	f.WatchedDate = &at
	t.st.films[id] = f
	return nil
}

func (t *memTx) DeleteFilm(_ context.Context, id uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.films[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.films, id)
	deleteByFirst(t.st.upvotes, id)
	deleteByFirst(t.st.filmGenres, id)
	deleteByFirst(t.st.filmProviders, id)
	for rid, r := range t.st.ratings {
		if r.FilmID == id {
			delete(t.st.ratings, rid)
		}
	}
	for efID, ef := range t.st.eventFilms {
		if ef.FilmID == id {
			delete(t.st.eventFilms, efID)
			deleteByFirst(t.st.eventFilmUpvotes, efID)
		}
	}
	return nil
}

func deleteByFirst[V any](m map[pairKey]V, a uint64) {
	for k := range m {
		if k.a == a {
			delete(m, k)
		}
	}
}

func (t *memTx) AdjustFilmUpvotes(_ context.Context, id uint64, delta int) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	f, ok := t.st.films[id]
	if !ok {
		return 0, ErrNotFound
	}
	f.TotalUpvotes = max(f.TotalUpvotes+delta, 0)
	t.st.films[id] = f
	return f.TotalUpvotes, nil
}

func (t *memTx) ListFilms(_ context.Context, watched bool) ([]*model.Film, error) {
	films := []*model.Film{}
	for _, f := range t.st.films {
		if f.Watched == watched {
			films = append(films, t.loadFilm(f))
		}
	}
	if watched {
		sort.Slice(films, func(i, j int) bool {
			a, b := films[i], films[j]
			if !a.WatchedDate.Equal(*b.WatchedDate) {
				return a.WatchedDate.After(*b.WatchedDate)
			}
			return a.ID > b.ID
		})
		return films, nil
	}
	sort.Slice(films, func(i, j int) bool {
		a, b := films[i], films[j]
		if a.TotalUpvotes != b.TotalUpvotes {
			return a.TotalUpvotes > b.TotalUpvotes
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return films, nil
}

// filmsByVote returns the films referenced by rows, newest row first.
func (t *memTx) filmsByVote(rows map[uint64]memVote) []*model.Film {
	ids := make([]uint64, 0, len(rows))
	for filmID := range rows {
		ids = append(ids, filmID)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := rows[ids[i]], rows[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	films := make([]*model.Film, 0, len(ids))
	for _, id := range ids {
		films = append(films, t.loadFilm(t.st.films[id]))
	}
	return films
}

func (t *memTx) ListFilmsUpvotedBy(_ context.Context, userID uint64) ([]*model.Film, error) {
	rows := make(map[uint64]memVote)
	for k, v := range t.st.upvotes {
		if k.b == userID {
			rows[k.a] = v
		}
	}
	return t.filmsByVote(rows), nil
}

func (t *memTx) ListFilmsRatedBy(_ context.Context, userID uint64) ([]*model.Film, error) {
	rows := make(map[uint64]memVote)
	for _, r := range t.st.ratings {
		if r.UserID == userID {
			rows[r.FilmID] = memVote{ID: r.ID, CreatedAt: r.CreatedAt}
		}
	}
	return t.filmsByVote(rows), nil
}

// --- lookups ---

func (t *memTx) GetOrCreateGenre(_ context.Context, name string) (*model.Genre, bool, error) {
	for _, g := range t.st.genres {
		if g.Name == name {
			return &g, false, nil
		}
	}
	if err := t.writable(); err != nil {
		return nil, false, err
	}
	g := model.Genre{ID: t.st.next("genres"), Name: name}
	t.st.genres[g.ID] = g
	return &g, true, nil
}

func (t *memTx) GetOrCreateProvider(_ context.Context, name, imageURL string) (*model.Provider, bool, error) {
	for _, p := range t.st.providers {
		if p.Name == name {
			return &p, false, nil
		}
	}
	if err := t.writable(); err != nil {
		return nil, false, err
	}
	p := model.Provider{ID: t.st.next("providers"), Name: name, ImageURL: imageURL}
	t.st.providers[p.ID] = p
	return &p, true, nil
}

func (t *memTx) LinkFilmGenre(_ context.Context, filmID, genreID uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.films[filmID]; !ok {
		return ErrNotFound
	}
	if _, ok := t.st.genres[genreID]; !ok {
		return ErrNotFound
	}
	t.st.filmGenres[pairKey{filmID, genreID}] = struct{}{}
	return nil
}

func (t *memTx) LinkFilmProvider(_ context.Context, filmID, providerID uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.films[filmID]; !ok {
		return ErrNotFound
	}
	if _, ok := t.st.providers[providerID]; !ok {
		return ErrNotFound
	}
	t.st.filmProviders[pairKey{filmID, providerID}] = struct{}{}
	return nil
}

func (t *memTx) ListGenres(_ context.Context) ([]model.Genre, error) {
	genres := make([]model.Genre, 0, len(t.st.genres))
	for _, g := range t.st.genres {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

// --- events ---

func (t *memTx) CreateEvent(_ context.Context, e *model.Event) error {
	if err := t.writable(); err != nil {
		return err
	}
	e.ID = t.st.next("events")
	e.Date = e.Date.UTC()
	e.CreatedAt = t.now()
	t.st.events[e.ID] = *e
	return nil
}

func (t *memTx) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	e, ok := t.st.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (t *memTx) ShareEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return t.GetEvent(ctx, id)
}

func (t *memTx) UpdateEvent(_ context.Context, id uint64, u model.EventUpdate) error {
	if err := t.writable(); err != nil {
		return err
	}
	e, ok := t.st.events[id]
	if !ok {
		return ErrNotFound
	}
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Date != nil {
		e.Date = u.Date.UTC()
	}
	if u.AllowProposals != nil {
		e.AllowProposals = *u.AllowProposals
	}
	t.st.events[id] = e
	return nil
}

func (t *memTx) DeleteEvent(_ context.Context, id uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.events[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.events, id)
	for efID, ef := range t.st.eventFilms {
		if ef.EventID == id {
			delete(t.st.eventFilms, efID)
			deleteByFirst(t.st.eventFilmUpvotes, efID)
		}
	}
	return nil
}

func (t *memTx) ListEvents(_ context.Context) ([]*model.Event, error) {
	events := make([]*model.Event, 0, len(t.st.events))
	for _, e := range t.st.events {
		events = append(events, &e)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}

// --- event films ---

func (t *memTx) GetEventFilm(_ context.Context, id uint64) (*model.EventFilm, error) {
	ef, ok := t.st.eventFilms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ef, nil
}

func (t *memTx) LockEventFilm(ctx context.Context, id uint64) (*model.EventFilm, error) {
	return t.GetEventFilm(ctx, id)
}

func (t *memTx) FindEventFilm(_ context.Context, eventID, filmID uint64) (*model.EventFilm, error) {
	for _, ef := range t.st.eventFilms {
		if ef.EventID == eventID && ef.FilmID == filmID {
			return &ef, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) CreateEventFilm(ctx context.Context, ef *model.EventFilm) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.events[ef.EventID]; !ok {
		return ErrNotFound
	}
	if _, ok := t.st.films[ef.FilmID]; !ok {
		return ErrNotFound
	}
	if _, err := t.FindEventFilm(ctx, ef.EventID, ef.FilmID); err == nil {
		return fmt.Errorf("insert event film: %w: event %d film %d", ErrDuplicate, ef.EventID, ef.FilmID)
	}
	ef.ID = t.st.next("event_films")
	ef.UpvoteCount = 0
	ef.CreatedAt = t.now()
	row := *ef
	row.Film = nil
	t.st.eventFilms[ef.ID] = row
	return nil
}

func (t *memTx) DeleteEventFilm(_ context.Context, id uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.eventFilms[id]; !ok {
		return ErrNotFound
	}
	delete(t.st.eventFilms, id)
	deleteByFirst(t.st.eventFilmUpvotes, id)
	return nil
}

func (t *memTx) AdjustEventFilmUpvotes(_ context.Context, id uint64, delta int) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	ef, ok := t.st.eventFilms[id]
	if !ok {
		return 0, ErrNotFound
	}
	ef.UpvoteCount = max(ef.UpvoteCount+delta, 0)
	t.st.eventFilms[id] = ef
	return ef.UpvoteCount, nil
}

func (t *memTx) ListEventFilms(_ context.Context, eventID uint64) ([]*model.EventFilm, error) {
	list := []*model.EventFilm{}
	for _, ef := range t.st.eventFilms {
		if ef.EventID != eventID {
			continue
		}
		ef.Film = t.loadFilm(t.st.films[ef.FilmID])
		list = append(list, &ef)
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.UpvoteCount != b.UpvoteCount {
			return a.UpvoteCount > b.UpvoteCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return list, nil
}

// --- votes ---

func (t *memTx) HasUpvote(_ context.Context, filmID, userID uint64) (bool, error) {
	_, ok := t.st.upvotes[pairKey{filmID, userID}]
	return ok, nil
}

func (t *memTx) CreateUpvote(_ context.Context, filmID, userID uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.films[filmID]; !ok {
		return ErrNotFound
	}
	k := pairKey{filmID, userID}
	if _, ok := t.st.upvotes[k]; ok {
		return fmt.Errorf("insert upvote: %w", ErrDuplicate)
	}
	t.st.upvotes[k] = memVote{ID: t.st.next("upvotes"), CreatedAt: t.now()}
	return nil
}

func (t *memTx) DeleteUpvote(_ context.Context, filmID, userID uint64) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	k := pairKey{filmID, userID}
	if _, ok := t.st.upvotes[k]; !ok {
		return false, nil
	}
	delete(t.st.upvotes, k)
	return true, nil
}

func (t *memTx) CountUpvotes(_ context.Context, filmID uint64) (int, error) {
	return countByFirst(t.st.upvotes, filmID), nil
}

func (t *memTx) HasEventFilmUpvote(_ context.Context, eventFilmID, userID uint64) (bool, error) {
	_, ok := t.st.eventFilmUpvotes[pairKey{eventFilmID, userID}]
	return ok, nil
}

func (t *memTx) CreateEventFilmUpvote(_ context.Context, eventFilmID, userID uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.eventFilms[eventFilmID]; !ok {
		return ErrNotFound
	}
	k := pairKey{eventFilmID, userID}
	if _, ok := t.st.eventFilmUpvotes[k]; ok {
		return fmt.Errorf("insert event film upvote: %w", ErrDuplicate)
	}
	t.st.eventFilmUpvotes[k] = memVote{ID: t.st.next("event_film_upvotes"), CreatedAt: t.now()}
	return nil
}

func (t *memTx) DeleteEventFilmUpvote(_ context.Context, eventFilmID, userID uint64) (bool, error) {
	if err := t.writable(); err != nil {
		return false, err
	}
	k := pairKey{eventFilmID, userID}
	if _, ok := t.st.eventFilmUpvotes[k]; !ok {
		return false, nil
	}
	delete(t.st.eventFilmUpvotes, k)
	return true, nil
}

func (t *memTx) CountEventFilmUpvotes(_ context.Context, eventFilmID uint64) (int, error) {
	return countByFirst(t.st.eventFilmUpvotes, eventFilmID), nil
}

func countByFirst[V any](m map[pairKey]V, a uint64) int {
	n := 0
	for k := range m {
		if k.a == a {
			n++
		}
	}
	return n
}

// --- ratings ---

func (t *memTx) HasRating(_ context.Context, filmID, userID uint64) (bool, error) {
	for _, r := range t.st.ratings {
		if r.FilmID == filmID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateRating(ctx context.Context, r *model.Rating) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.films[r.FilmID]; !ok {
		return ErrNotFound
	}
	if ok, _ := t.HasRating(ctx, r.FilmID, r.UserID); ok {
		return fmt.Errorf("insert rating: %w", ErrDuplicate)
	}
	r.ID = t.st.next("ratings")
	r.CreatedAt = t.now()
	t.st.ratings[r.ID] = *r
	return nil
}

// --- users ---

func (t *memTx) CreateUser(_ context.Context, u *model.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, other := range t.st.users {
		if other.Username == u.Username || other.Email == u.Email {
			return fmt.Errorf("insert user: %w", ErrDuplicate)
		}
	}
	u.ID = t.st.next("users")
	u.CreatedAt = t.now()
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUserByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByLogin(_ context.Context, login string) (*model.User, error) {
	login = strings.TrimSpace(login)
	email := strings.ToLower(login)
	for _, u := range t.st.users {
		if u.Username == login || u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// --- refresh tokens ---

func (t *memTx) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.st.tokens[tokenHash]; ok {
		return fmt.Errorf("store refresh: %w", ErrDuplicate)
	}
	t.st.tokens[tokenHash] = memToken{UserID: userID, ExpiresAt: exp.UTC()}
	return nil
}

func (t *memTx) ValidateRefresh(_ context.Context, tokenHash string, now time.Time) (uint64, error) {
	tok, ok := t.st.tokens[tokenHash]
	if !ok || tok.Revoked || now.UTC().After(tok.ExpiresAt) {
		return 0, ErrNotFound
	}
	return tok.UserID, nil
}

func (t *memTx) RevokeRefresh(_ context.Context, tokenHash string) error {
	if err := t.writable(); err != nil {
		return err
	}
	tok, ok := t.st.tokens[tokenHash]
	if !ok || tok.Revoked {
		return ErrNotFound
	}
	tok.Revoked = true
	t.st.tokens[tokenHash] = tok
	return nil
}
