package directory_test

import (
	"testing"

	"github.com/Almirante-Ming/Rose/directory"
	"github.com/stretchr/testify/require"
)

var people = []directory.Person{
	{ID: 3, Name: "carla", Type: directory.PersonCustomer, CreatedAt: "2025-01-03"},
	{ID: 1, Name: "Ana", Type: directory.PersonAdmin, CreatedAt: "2025-01-05"},
	{ID: 2, Name: "Bruno", Type: directory.PersonTrainer, CreatedAt: "2025-01-01"},
	{ID: 4, Name: "Mariana", Type: directory.PersonCustomer, CreatedAt: "2025-01-02"},
}

func ids(list []directory.Person) []int64 {
	out := make([]int64, 0, len(list))

	for _, p := range list {
		out = append(out, p.ID)
	}

	return out
}

func TestFilterPersons(t *testing.T) {
	tests := map[string]struct {
		query directory.PersonQuery
		want  []int64
	}{
		"defaults to id ascending": {query: directory.PersonQuery{}, want: []int64{1, 2, 3, 4}},
		"name is case-insensitive": {query: directory.PersonQuery{Name: " AN "}, want: []int64{1, 4}},
		"type filter":              {query: directory.PersonQuery{Type: directory.PersonCustomer}, want: []int64{3, 4}},
		"name sort ignores case":   {query: directory.PersonQuery{SortBy: directory.SortByName}, want: []int64{1, 2, 3, 4}},
		"created descending":       {query: directory.PersonQuery{SortBy: directory.SortByCreated, Desc: true}, want: []int64{1, 3, 4, 2}},
		"no match":                 {query: directory.PersonQuery{Name: "zed"}, want: []int64{}},
		"combined filter and sort": {query: directory.PersonQuery{Name: "a", Type: directory.PersonCustomer, Desc: true}, want: []int64{4, 3}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, ids(directory.FilterPersons(people, tt.query)))
		})
	}

	t.Run("input is not reordered", func(t *testing.T) {
		before := ids(people)
		directory.FilterPersons(people, directory.PersonQuery{SortBy: directory.SortByName})
		require.Equal(t, before, ids(people))
	})
}

func TestFilterMachines(t *testing.T) {
	machines := []directory.Machine{
		{ID: 2, Name: "pilates"},
		{ID: 1, Name: "Spinning"},
		{ID: 3, Name: "Pilates Reformer"},
	}

	got := directory.FilterMachines(machines, directory.MachineQuery{Name: "pil", SortBy: directory.SortByName})
	require.Equal(t, []directory.Machine{machines[0], machines[2]}, got)

	got = directory.FilterMachines(machines, directory.MachineQuery{Desc: true})
	require.Equal(t, []directory.Machine{machines[2], machines[0], machines[1]}, got)
}

func TestSplitPeople(t *testing.T) {
	trainers, customers := directory.SplitPeople(people)

	require.Equal(t, []int64{2}, ids(trainers))
	require.Equal(t, []int64{3, 4}, ids(customers))
}

func TestPersonInputValidate(t *testing.T) {
	in := directory.PersonInput{
		Name:      " Ana ",
		Email:     "ana@studio.com",
		Phone:     "11999998888",
		CPF:       "12345678901",
		BirthDate: "1990-05-01",
		Type:      directory.PersonTrainer,
	}

	require.NoError(t, in.Validate())
	require.Equal(t, "Ana", in.Name)

	in.Type = "owner"
	in.BirthDate = "01/05/1990"
	in.Password = "123"

	err := in.Validate()

	var validationErr *directory.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, map[string]string{"p_type": "oneof", "dt_birth": "datetime", "password": "min"}, validationErr.Fields)
}

func TestMachineInputValidate(t *testing.T) {
	in := directory.MachineInput{Name: "Pilates"}

	require.NoError(t, in.Validate())
	require.Equal(t, directory.MachineActive, in.State)

	in = directory.MachineInput{Name: "  ", State: "broken"}

	var validationErr *directory.ValidationError
	require.ErrorAs(t, in.Validate(), &validationErr)
	require.Equal(t, map[string]string{"name": "required", "state": "oneof"}, validationErr.Fields)
}
