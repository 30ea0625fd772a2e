package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/directory"
)

const createdLayout = "2006-01-02T15:04:05"

type person struct {
	directory.Person
	passwordHash string
}

// Memory keeps everything in maps and loses it on exit.
type Memory struct {
	mu        sync.RWMutex
	persons   map[int64]person
	machines  map[int64]directory.Machine
	schedules map[int64]booking.Booking
	nextID    int64
}

func NewMemory() *Memory {
	return &Memory{
		persons:   map[int64]person{},
		machines:  map[int64]directory.Machine{},
		schedules: map[int64]booking.Booking{},
	}
}

func (m *Memory) FindAccount(_ context.Context, login string) (Account, error) {
	login = strings.TrimSpace(login)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range sortedKeys(m.persons) {
		p := m.persons[id]

		if strings.EqualFold(p.Email, login) || (len(p.Phone) > 0 && p.Phone == login) {
			return Account{Person: p.Person, PasswordHash: p.passwordHash}, nil
		}
	}

	return Account{}, ErrNotFound
}

func (m *Memory) ListSchedules(_ context.Context, personID int64, r Range) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []booking.Booking{}

	for _, id := range sortedKeys(m.schedules) {
		b := m.schedules[id]

		if b.TrainerID != personID && b.CustomerID != personID {
			continue
		}

		if !r.contains(b.Date) {
			continue
		}

		out = append(out, m.withNames(b))
	}

	return out, nil
}

func (m *Memory) GetSchedule(_ context.Context, id int64) (booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.schedules[id]

	if !ok {
		return booking.Booking{}, ErrNotFound
	}

	return m.withNames(b), nil
}

func (m *Memory) InsertSchedule(_ context.Context, b booking.Booking) (booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b = normalizeStatus(b)

	if err := m.checkSchedule(b); err != nil {
		return booking.Booking{}, err
	}

	m.nextID++
	b.ID = m.nextID
	m.schedules[b.ID] = stripNames(b)

	return m.withNames(b), nil
}

func (m *Memory) UpdateSchedule(_ context.Context, b booking.Booking) (booking.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[b.ID]; !ok {
		return booking.Booking{}, ErrNotFound
	}

	b = normalizeStatus(b)

	if err := m.checkSchedule(b); err != nil {
		return booking.Booking{}, err
	}

	m.schedules[b.ID] = stripNames(b)

	return m.withNames(b), nil
}

func (m *Memory) DeleteSchedule(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}

	delete(m.schedules, id)

	return nil
}

func (m *Memory) ListPersons(_ context.Context) ([]directory.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]directory.Person, 0, len(m.persons))

	for _, id := range sortedKeys(m.persons) {
		out = append(out, m.persons[id].Person)
	}

	return out, nil
}

func (m *Memory) GetPerson(_ context.Context, id int64) (directory.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.persons[id]

	if !ok {
		return directory.Person{}, ErrNotFound
	}

	return p.Person, nil
}

func (m *Memory) InsertPerson(_ context.Context, p directory.Person, passwordHash string) (directory.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.emailTaken(p.Email, 0) {
		return directory.Person{}, ErrConflict
	}

	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now().UTC().Format(createdLayout)
	m.persons[p.ID] = person{Person: p, passwordHash: passwordHash}

	return p, nil
}

func (m *Memory) UpdatePerson(_ context.Context, p directory.Person, passwordHash string) (directory.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.persons[p.ID]

	if !ok {
		return directory.Person{}, ErrNotFound
	}

	if m.emailTaken(p.Email, p.ID) {
		return directory.Person{}, ErrConflict
	}

	if len(passwordHash) == 0 {
		passwordHash = current.passwordHash
	}

	p.CreatedAt = current.CreatedAt
	m.persons[p.ID] = person{Person: p, passwordHash: passwordHash}

	return p, nil
}

func (m *Memory) DeletePerson(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.persons[id]; !ok {
		return ErrNotFound
	}

	for _, b := range m.schedules {
		if b.TrainerID == id || b.CustomerID == id {
			return ErrConflict
		}
	}

	delete(m.persons, id)

	return nil
}

func (m *Memory) ListMachines(_ context.Context) ([]directory.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]directory.Machine, 0, len(m.machines))

	for _, id := range sortedKeys(m.machines) {
		out = append(out, m.machines[id])
	}

	return out, nil
}

func (m *Memory) GetMachine(_ context.Context, id int64) (directory.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	machine, ok := m.machines[id]

	if !ok {
		return directory.Machine{}, ErrNotFound
	}

	return machine, nil
}

func (m *Memory) InsertMachine(_ context.Context, machine directory.Machine) (directory.Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	machine.ID = m.nextID
	m.machines[machine.ID] = machine

	return machine, nil
}

func (m *Memory) UpdateMachine(_ context.Context, machine directory.Machine) (directory.Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.machines[machine.ID]; !ok {
		return directory.Machine{}, ErrNotFound
	}

	m.machines[machine.ID] = machine

	return machine, nil
}

func (m *Memory) DeleteMachine(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.machines[id]; !ok {
		return ErrNotFound
	}

	for _, b := range m.schedules {
		if b.MachineID == id {
			return ErrConflict
		}
	}

	delete(m.machines, id)

	return nil
}

// checkSchedule mirrors the Postgres constraints: references must exist and
// a trainer or customer holds at most one live booking per slot.
func (m *Memory) checkSchedule(b booking.Booking) error {
	_, trainer := m.persons[b.TrainerID]
	_, customer := m.persons[b.CustomerID]
	_, machine := m.machines[b.MachineID]

	if !trainer || !customer || !machine {
		return ErrInvalidReference
	}

	if b.Status == booking.StatusCancelled {
		return nil
	}

	for id, other := range m.schedules {
		if id == b.ID || other.Status == booking.StatusCancelled {
			continue
		}

		if other.Date != b.Date || other.Time != b.Time {
			continue
		}

		if other.TrainerID == b.TrainerID || other.CustomerID == b.CustomerID {
			return ErrConflict
		}
	}

	return nil
}

func (m *Memory) emailTaken(email string, except int64) bool {
	if len(email) == 0 {
		return false
	}

	for id, p := range m.persons {
		if id != except && strings.EqualFold(p.Email, email) {
			return true
		}
	}

	return false
}

func (m *Memory) withNames(b booking.Booking) booking.Booking {
	b.TrainerName = m.persons[b.TrainerID].Name
	b.CustomerName = m.persons[b.CustomerID].Name
	b.MachineName = m.machines[b.MachineID].Name

	return b
}

func stripNames(b booking.Booking) booking.Booking {
	b.TrainerName = ""
	b.CustomerName = ""
	b.MachineName = ""

	return b
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}
