package directory

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Almirante-Ming/Rose/validate"
)

type PersonType string

const (
	PersonAdmin    PersonType = "admin"
	PersonTrainer  PersonType = "trainer"
	PersonCustomer PersonType = "customer"
)

type MachineState string

const (
	MachineActive      MachineState = "active"
	MachineInactive    MachineState = "inactive"
	MachineMaintenance MachineState = "maintenance"
)

type Person struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	CPF       string     `json:"cpf"`
	BirthDate string     `json:"dt_birth"`
	Type      PersonType `json:"p_type"`
	CreatedAt string     `json:"dt_create,omitempty"`
}

type Machine struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	State       MachineState `json:"m_state"`
}

// PersonInput is the body of a person create or update.
type PersonInput struct {
	Name      string     `json:"name" validate:"required,max=120"`
	Email     string     `json:"email" validate:"required,email"`
	Phone     string     `json:"phone" validate:"required,min=10,max=15"`
	CPF       string     `json:"cpf" validate:"required,min=11,max=14"`
	BirthDate string     `json:"dt_birth" validate:"required,datetime=2006-01-02"`
	Type      PersonType `json:"p_type" validate:"required,oneof=admin trainer customer"`
	Password  string     `json:"password,omitempty" validate:"omitempty,min=6"`
}

func (in *PersonInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CPF = strings.TrimSpace(in.CPF)

	return validate.Struct(in)
}

// MachineInput is the body of a machine create or update. The API names
// the state field "state" on writes and "m_state" on reads.
type MachineInput struct {
	Name        string       `json:"name" validate:"required,max=120"`
	Description string       `json:"description" validate:"max=500"`
	State       MachineState `json:"state" validate:"omitempty,oneof=active inactive maintenance"`
}

func (in *MachineInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if len(in.State) == 0 {
		in.State = MachineActive
	}

	return validate.Struct(in)
}

type SortField string

const (
	SortByID      SortField = "id"
	SortByName    SortField = "name"
	SortByCreated SortField = "created"
)

type PersonQuery struct {
	Name   string
	Type   PersonType
	SortBy SortField
	Desc   bool
}

type MachineQuery struct {
	Name   string
	SortBy SortField
	Desc   bool
}

// FilterPersons returns a filtered, sorted copy. An empty Type keeps every
// type; an unknown SortBy sorts by id.
func FilterPersons(list []Person, q PersonQuery) []Person {
	name := strings.ToLower(strings.TrimSpace(q.Name))
	out := make([]Person, 0, len(list))

	for _, p := range list {
		if len(name) > 0 && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}

		if len(q.Type) > 0 && p.Type != q.Type {
			continue
		}

		out = append(out, p)
	}

	slices.SortStableFunc(out, func(a, b Person) int {
		var c int

		switch q.SortBy {
		case SortByName:
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByCreated:
			c = cmp.Compare(a.CreatedAt, b.CreatedAt)
		default:
			c = cmp.Compare(a.ID, b.ID)
		}

		if q.Desc {
			return -c
		}

		return c
	})

	return out
}

func FilterMachines(list []Machine, q MachineQuery) []Machine {
	name := strings.ToLower(strings.TrimSpace(q.Name))
	out := make([]Machine, 0, len(list))

	for _, m := range list {
		if len(name) > 0 && !strings.Contains(strings.ToLower(m.Name), name) {
			continue
		}

		out = append(out, m)
	}

	slices.SortStableFunc(out, func(a, b Machine) int {
		var c int

		if q.SortBy == SortByName {
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		} else {
			c = cmp.Compare(a.ID, b.ID)
		}

		if q.Desc {
			return -c
		}

		return c
	})

	return out
}

// SplitPeople separates the people a booking can name as trainer from those
// it can name as customer. Admins are in neither list.
func SplitPeople(list []Person) (trainers, customers []Person) {
	for _, p := range list {
		switch p.Type {
		case PersonTrainer:
			trainers = append(trainers, p)
		case PersonCustomer:
			customers = append(customers, p)
		}
	}

	return trainers, customers
}
