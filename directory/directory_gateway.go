package directory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

type Gateway struct {
	api    API
	logger *zap.Logger
}

func NewGateway(api API, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{api: api, logger: logger.With(zap.String("component", "directory"))}
}

func (g *Gateway) ListPersons(ctx context.Context) ([]Person, error) {
	var persons []Person

	if err := g.api.Get(ctx, "/persons", &persons); err != nil {
		return nil, err
	}

	return persons, nil
}

func (g *Gateway) GetPerson(ctx context.Context, id int64) (Person, error) {
	var p Person

	if err := g.api.Get(ctx, personPath(id), &p); err != nil {
		return Person{}, err
	}

	return p, nil
}

func (g *Gateway) CreatePerson(ctx context.Context, in PersonInput) (Person, error) {
	if err := in.Validate(); err != nil {
		return Person{}, err
	}

	var p Person

	if err := g.api.Post(ctx, "/persons", in, &p); err != nil {
		return Person{}, err
	}

	g.logger.Info("person created", zap.Int64("person_id", p.ID), zap.String("p_type", string(p.Type)))

	return p, nil
}

func (g *Gateway) UpdatePerson(ctx context.Context, id int64, in PersonInput) (Person, error) {
	if err := in.Validate(); err != nil {
		return Person{}, err
	}

	var p Person

	if err := g.api.Put(ctx, personPath(id), in, &p); err != nil {
		return Person{}, err
	}

	return p, nil
}

func (g *Gateway) DeletePerson(ctx context.Context, id int64) error {
	if err := g.api.Delete(ctx, personPath(id), nil); err != nil {
		return err
	}

	g.logger.Info("person deleted", zap.Int64("person_id", id))

	return nil
}

// ListMachines fills in the active state for machines the server sent
// without one.
func (g *Gateway) ListMachines(ctx context.Context) ([]Machine, error) {
	var machines []Machine

	if err := g.api.Get(ctx, "/machines", &machines); err != nil {
		return nil, err
	}

	for i := range machines {
		machines[i] = withState(machines[i])
	}

	return machines, nil
}

func (g *Gateway) GetMachine(ctx context.Context, id int64) (Machine, error) {
	var m Machine

	if err := g.api.Get(ctx, machinePath(id), &m); err != nil {
		return Machine{}, err
	}

	return withState(m), nil
}

func (g *Gateway) CreateMachine(ctx context.Context, in MachineInput) (Machine, error) {
	if err := in.Validate(); err != nil {
		return Machine{}, err
	}

	var m Machine

	if err := g.api.Post(ctx, "/machines", in, &m); err != nil {
		return Machine{}, err
	}

	g.logger.Info("machine created", zap.Int64("machine_id", m.ID))

	return withState(m), nil
}

func (g *Gateway) UpdateMachine(ctx context.Context, id int64, in MachineInput) (Machine, error) {
	if err := in.Validate(); err != nil {
		return Machine{}, err
	}

	var m Machine

	if err := g.api.Put(ctx, machinePath(id), in, &m); err != nil {
		return Machine{}, err
	}

	return withState(m), nil
}

func (g *Gateway) DeleteMachine(ctx context.Context, id int64) error {
	if err := g.api.Delete(ctx, machinePath(id), nil); err != nil {
		return err
	}

	g.logger.Info("machine deleted", zap.Int64("machine_id", id))

	return nil
}

func personPath(id int64) string {
	return fmt.Sprintf("/persons/%d", id)
}

func machinePath(id int64) string {
	return fmt.Sprintf("/machines/%d", id)
}

func withState(m Machine) Machine {
	if len(m.State) == 0 {
		m.State = MachineActive
	}

	return m
}
