package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/race-settlement/internal/models"
)

var errReadOnly = errors.New("write attempted in read-only unit of work")

// MemoryStore implements Store in process memory. A unit of work runs against
// a private copy of the state that replaces the shared state only on success.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

type memState struct {
	readOnly  bool
	horses    map[string]models.Horse
	races     map[string]models.Race
	entries   []models.RaceEntry
	nextEntry int64
	bets      []models.Bet
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			horses: make(map[string]models.Horse),
			races:  make(map[string]models.Race),
		},
		now: time.Now,
	}
}

// WithinTx runs fn against a copy of the state and commits the copy if fn succeeds
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(work.repositories(s.now)); err != nil {
		return err
	}
	s.state = work
	return nil
}

// ReadOnly runs fn against the current state under a shared lock
func (s *MemoryStore) ReadOnly(ctx context.Context, fn func(repos *Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	view := *s.state
	view.readOnly = true
	return fn(view.repositories(s.now))
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (st *memState) clone() *memState {
	c := &memState{
		horses:    make(map[string]models.Horse, len(st.horses)),
		races:     make(map[string]models.Race, len(st.races)),
		entries:   append([]models.RaceEntry(nil), st.entries...),
		nextEntry: st.nextEntry,
		bets:      make([]models.Bet, len(st.bets)),
	}
	for k, v := range st.horses {
		c.horses[k] = v
	}
	for k, v := range st.races {
		c.races[k] = copyRace(v)
	}
	for i, b := range st.bets {
		c.bets[i] = copyBet(b)
	}
	return c
}

func (st *memState) repositories(now func() time.Time) *Repositories {
	return &Repositories{
		Horses: &memHorses{st: st, now: now},
		Races:  &memRaces{st: st, now: now},
		Bets:   &memBets{st: st},
	}
}

func (st *memState) writable() error {
	if st.readOnly {
		return errReadOnly
	}
	return nil
}

func copyRace(r models.Race) models.Race {
	if r.WinningHorseID != nil {
		id := *r.WinningHorseID
		r.WinningHorseID = &id
	}
	return r
}

func copyBet(b models.Bet) models.Bet {
	if b.SettledAt != nil {
		at := *b.SettledAt
		b.SettledAt = &at
	}
	return b
}

type memHorses struct {
	st  *memState
	now func() time.Time
}

func (m *memHorses) Create(_ context.Context, horse *models.Horse) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	if _, ok := m.st.horses[horse.ID]; ok {
		return fmt.Errorf("failed to create horse: %w", models.ErrDuplicateKey)
	}
	now := m.now()
	horse.CreatedAt, horse.UpdatedAt = now, now
	m.st.horses[horse.ID] = *horse
	return nil
}

func (m *memHorses) Get(_ context.Context, id string) (*models.Horse, error) {
	h, ok := m.st.horses[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &h, nil
}

func (m *memHorses) Update(_ context.Context, id string, racesRun, racesWon int) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	h, ok := m.st.horses[id]
	if !ok {
		return models.ErrNotFound
	}
	if racesRun < 0 || racesWon < 0 || racesWon > racesRun {
		return fmt.Errorf("failed to update horse %s: %w", id, models.ErrInvalidStatistics)
	}
	h.RacesRun, h.RacesWon, h.UpdatedAt = racesRun, racesWon, m.now()
	m.st.horses[id] = h
	return nil
}

func (m *memHorses) Count(context.Context) (int, error) {
	return len(m.st.horses), nil
}

type memRaces struct {
	st  *memState
	now func() time.Time
}

func (m *memRaces) Create(_ context.Context, race *models.Race) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	if _, ok := m.st.races[race.ID]; ok {
		return fmt.Errorf("failed to create race: %w", models.ErrDuplicateKey)
	}
	if race.Status == "" {
		race.Status = models.RaceStatusScheduled
	}
	now := m.now()
	race.CreatedAt, race.UpdatedAt = now, now
	m.st.races[race.ID] = copyRace(*race)
	return nil
}

func (m *memRaces) Get(_ context.Context, id string) (*models.Race, error) {
	r, ok := m.st.races[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	r = copyRace(r)
	return &r, nil
}

// GetForUpdate needs no extra locking: the store lock is held for the whole unit of work.
func (m *memRaces) GetForUpdate(ctx context.Context, id string) (*models.Race, error) {
	return m.Get(ctx, id)
}

func (m *memRaces) GetForShare(ctx context.Context, id string) (*models.Race, error) {
	return m.Get(ctx, id)
}

func (m *memRaces) MarkFinished(_ context.Context, id, winningHorseID string) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	r, ok := m.st.races[id]
	if !ok {
		return models.ErrNotFound
	}
	if r.Status != models.RaceStatusScheduled {
		return models.ErrRaceAlreadyFinished
	}
	r.Status = models.RaceStatusFinished
	r.WinningHorseID = &winningHorseID
	r.UpdatedAt = m.now()
	m.st.races[id] = r
	return nil
}

func (m *memRaces) scheduled(filter func(models.Race) bool) []*models.Race {
	var out []*models.Race
	for _, r := range m.st.races {
		if r.Status == models.RaceStatusScheduled && filter(r) {
			r = copyRace(r)
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memRaces) NextScheduled(context.Context) (*models.Race, error) {
	races := m.scheduled(func(models.Race) bool { return true })
	if len(races) == 0 {
		return nil, models.ErrNotFound
	}
	return races[0], nil
}

func (m *memRaces) DueForSettlement(_ context.Context, now time.Time) ([]*models.Race, error) {
	return m.scheduled(func(r models.Race) bool { return !r.StartTime.After(now) }), nil
}

func (m *memRaces) AddEntry(_ context.Context, entry *models.RaceEntry) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	if _, ok := m.st.races[entry.RaceID]; !ok {
		return fmt.Errorf("failed to add race entry: race %s: %w", entry.RaceID, models.ErrNotFound)
	}
	horse, ok := m.st.horses[entry.HorseID]
	if !ok {
		return fmt.Errorf("failed to add race entry: horse %s: %w", entry.HorseID, models.ErrNotFound)
	}
	for _, e := range m.st.entries {
		if e.RaceID == entry.RaceID && e.HorseID == entry.HorseID {
			return fmt.Errorf("failed to add race entry: %w", models.ErrDuplicateKey)
		}
	}
	m.st.nextEntry++
	entry.ID = m.st.nextEntry
	entry.HorseName = horse.Name
	m.st.entries = append(m.st.entries, *entry)
	return nil
}

func (m *memRaces) EntriesFor(_ context.Context, raceID string) ([]*models.RaceEntry, error) {
	var out []*models.RaceEntry
	for _, e := range m.st.entries {
		if e.RaceID == raceID {
			e := e
			out = append(out, &e)
		}
	}
	return out, nil
}

func (m *memRaces) Entry(_ context.Context, raceID, horseID string) (*models.RaceEntry, error) {
	for _, e := range m.st.entries {
		if e.RaceID == raceID && e.HorseID == horseID {
			e := e
			return &e, nil
		}
	}
	return nil, models.ErrNotFound
}

type memBets struct {
	st *memState
}

func (m *memBets) Insert(_ context.Context, bet *models.Bet) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	for _, b := range m.st.bets {
		if b.ID == bet.ID {
			return fmt.Errorf("failed to create bet: %w", models.ErrDuplicateKey)
		}
	}
	m.st.bets = append(m.st.bets, copyBet(*bet))
	return nil
}

func (m *memBets) Get(_ context.Context, id uuid.UUID) (*models.Bet, error) {
	for _, b := range m.st.bets {
		if b.ID == id {
			b = copyBet(b)
			return &b, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memBets) filter(keep func(models.Bet) bool) []*models.Bet {
	var out []*models.Bet
	for _, b := range m.st.bets {
		if keep(b) {
			b = copyBet(b)
			out = append(out, &b)
		}
	}
	return out
}

func (m *memBets) BetsForRace(_ context.Context, raceID string) ([]*models.Bet, error) {
	return m.filter(func(b models.Bet) bool { return b.RaceID == raceID }), nil
}

func (m *memBets) WinningBets(_ context.Context, raceID string) ([]*models.Bet, error) {
	return m.filter(func(b models.Bet) bool {
		return b.RaceID == raceID && b.Status == models.BetStatusWon
	}), nil
}

func (m *memBets) ForUser(_ context.Context, user string) ([]*models.Bet, error) {
	bets := m.filter(func(b models.Bet) bool { return b.User == user })
	// newest first, matching the postgres ordering
	for i, j := 0, len(bets)-1; i < j; i, j = i+1, j-1 {
		bets[i], bets[j] = bets[j], bets[i]
	}
	return bets, nil
}

func (m *memBets) UpdateSettlement(_ context.Context, bet *models.Bet) error {
	if err := m.st.writable(); err != nil {
		return err
	}
	for i, b := range m.st.bets {
		if b.ID != bet.ID {
			continue
		}
		if b.Status != models.BetStatusPending {
			return fmt.Errorf("bet %s is not pending: %w", bet.ID, models.ErrNotFound)
		}
		b.Status, b.Payout, b.SettledAt = bet.Status, bet.Payout, bet.SettledAt
		m.st.bets[i] = copyBet(b)
		return nil
	}
	return models.ErrNotFound
}
