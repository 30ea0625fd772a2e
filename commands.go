package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Almirante-Ming/Rose/auth"
	"github.com/Almirante-Ming/Rose/booking"
	"github.com/Almirante-Ming/Rose/directory"
	"github.com/Almirante-Ming/Rose/role"
	"github.com/Almirante-Ming/Rose/schedule"
)

const rescheduleLayout = booking.DateLayout + " " + booking.TimeLayout

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)

	return fs
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	remember := fs.Bool("remember", false, "stay logged in on this machine")
	password := fs.String("password", "", "password, read from stdin when empty")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return errors.New("login needs exactly one email or phone")
	}

	creds := auth.Credentials{Login: fs.Arg(0), Password: *password}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "remember" {
			creds.PersistLogin = remember
		}
	})

	if len(creds.Password) == 0 {
		pw, err := a.readLine("Password: ")

		if err != nil {
			return err
		}

		creds.Password = pw
	}

	user, err := a.auth.Login(ctx, creds)

	if errors.Is(err, auth.ErrInvalidCredentials) {
		return errors.New("invalid email, phone or password")
	}

	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Logged in as %v (%v).\n", user.Email, user.Role.Name)

	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, "Logged out.")

	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	status, err := a.auth.Current(ctx)

	if err != nil {
		return err
	}

	if !status.Authenticated {
		fmt.Fprintln(a.stdout, "Not logged in.")
		return nil
	}

	tabs := make([]string, 0, 4)

	for _, tab := range role.Tabs(status.Route) {
		tabs = append(tabs, string(tab))
	}

	permissions := make([]string, 0, len(status.Role.Permissions))

	for _, p := range status.Role.Permissions {
		permissions = append(permissions, string(p))
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "email\t%v\n", status.User.Email)
	fmt.Fprintf(w, "id\t%d\n", status.User.ID)
	fmt.Fprintf(w, "role\t%v (level %d)\n", status.Role.Name, status.Role.Level)
	fmt.Fprintf(w, "route\t%v\n", status.Route)
	fmt.Fprintf(w, "tabs\t%v\n", strings.Join(tabs, ", "))
	fmt.Fprintf(w, "permissions\t%v\n", strings.Join(permissions, ", "))

	return w.Flush()
}

func runStatus(ctx context.Context, a *app, _ []string) error {
	status := a.auth.CheckAPIStatus(ctx)

	fmt.Fprintf(a.stdout, "%v %v\n", a.client.BaseURL(), status.Message)

	if !status.Online {
		return errors.New("server is not available")
	}

	return nil
}

func runURL(ctx context.Context, a *app, args []string) error {
	fs := a.flags("url")
	reset := fs.Bool("reset", false, "go back to the default address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *reset:
		if err := a.prefs.Clear(ctx); err != nil {
			return err
		}
	case fs.NArg() == 1:
		if _, err := a.prefs.SetBaseURL(ctx, fs.Arg(0)); err != nil {
			return err
		}
	case fs.NArg() > 1:
		return errors.New("url takes at most one address")
	}

	current, err := a.prefs.BaseURL(ctx)

	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, current)

	return nil
}

func runBookings(ctx context.Context, a *app, args []string) error {
	fs := a.flags("bookings")
	date := fs.String("date", "", "only this day")
	from := fs.String("from", "", "first day of a range")
	to := fs.String("to", "", "last day of a range")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(*from) > 0 || len(*to) > 0 {
		grouped, err := a.bookings.ListUserBookingsInRange(ctx, *from, *to)

		if err != nil {
			return err
		}

		return a.printBookings(grouped.Flatten())
	}

	ctrl := a.controller()

	if err := ctrl.Load(ctx); err != nil {
		return err
	}

	if len(*date) > 0 {
		if err := ctrl.SelectDate(*date); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(a.stdout, "Upcoming:")
	}

	return a.printBookings(ctrl.Visible())
}

func runBook(ctx context.Context, a *app, args []string) error {
	fs := a.flags("book")
	in := booking.Input{}

	fs.StringVar(&in.Date, "date", "", "day, YYYY-MM-DD")
	fs.StringVar(&in.Time, "time", "", "start, HH:MM")
	fs.Int64Var(&in.TrainerID, "trainer", 0, "trainer id")
	fs.Int64Var(&in.CustomerID, "customer", 0, "customer id, defaults to you")
	fs.Int64Var(&in.MachineID, "machine", 0, "activity id")
	fs.StringVar(&in.Message, "message", "", "note for the trainer")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if in.CustomerID == 0 {
		id, err := a.sessions.UserID(ctx)

		if err != nil {
			return err
		}

		in.CustomerID = id
	}

	created, err := a.bookings.CreateBooking(ctx, in)

	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Booked #%d on %v at %v.\n", created.ID, created.Date, created.Time)

	return nil
}

func runCancel(ctx context.Context, a *app, args []string) error {
	fs := a.flags("cancel")
	reason := fs.String("reason", "", "why the booking is cancelled")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.act(ctx, fs, func(ctrl *schedule.Controller) error {
		if err := ctrl.BeginCancel(ctx); err != nil {
			return err
		}

		return ctrl.SubmitCancel(ctx, *reason)
	})
}

func runReschedule(ctx context.Context, a *app, args []string) error {
	fs := a.flags("reschedule")
	at := fs.String("at", "", "new slot, 'YYYY-MM-DD HH:MM'")

	if err := fs.Parse(args); err != nil {
		return err
	}

	when, err := time.ParseInLocation(rescheduleLayout, *at, time.Local)

	if err != nil {
		return fmt.Errorf("%w: '%v'", booking.ErrInvalidDateTime, *at)
	}

	return a.act(ctx, fs, func(ctrl *schedule.Controller) error {
		if err := ctrl.BeginReschedule(ctx); err != nil {
			return err
		}

		return ctrl.SubmitReschedule(ctx, when)
	})
}

func runConfirm(ctx context.Context, a *app, args []string) error {
	fs := a.flags("confirm")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.act(ctx, fs, func(ctrl *schedule.Controller) error {
		return ctrl.Confirm(ctx)
	})
}

// act loads the user's bookings, opens the one named on the command line
// and runs do against it.
func (a *app) act(ctx context.Context, fs *flag.FlagSet, do func(*schedule.Controller) error) error {
	if fs.NArg() != 1 {
		return fmt.Errorf("%v needs exactly one booking id", fs.Name())
	}

	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)

	if err != nil {
		return fmt.Errorf("invalid booking id '%v'", fs.Arg(0))
	}

	ctrl := a.controller()

	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}

	if err := ctrl.OpenDetail(id); err != nil {
		return err
	}

	err = do(ctrl)

	if errors.Is(err, schedule.ErrActionNotAllowed) {
		actions, _ := ctrl.Actions(ctx)
		return fmt.Errorf("%w, available: %v", err, actions)
	}

	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, ctrl.State().Message)

	return nil
}

func runPersons(ctx context.Context, a *app, args []string) error {
	fs := a.flags("persons")
	q := directory.PersonQuery{}

	fs.StringVar(&q.Name, "name", "", "part of the name")
	fs.StringVar((*string)(&q.Type), "type", "", "admin, trainer or customer")
	fs.StringVar((*string)(&q.SortBy), "sort", "id", "id, name or created")
	fs.BoolVar(&q.Desc, "desc", false, "sort descending")

	if err := fs.Parse(args); err != nil {
		return err
	}

	persons, err := a.directory.ListPersons(ctx)

	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tEMAIL\tPHONE\tCREATED")

	for _, p := range directory.FilterPersons(persons, q) {
		fmt.Fprintf(w, "%d\t%v\t%v\t%v\t%v\t%v\n", p.ID, p.Name, p.Type, p.Email, p.Phone, p.CreatedAt)
	}

	return w.Flush()
}

func runMachines(ctx context.Context, a *app, args []string) error {
	fs := a.flags("machines")
	q := directory.MachineQuery{}

	fs.StringVar(&q.Name, "name", "", "part of the name")
	fs.StringVar((*string)(&q.SortBy), "sort", "id", "id or name")
	fs.BoolVar(&q.Desc, "desc", false, "sort descending")

	if err := fs.Parse(args); err != nil {
		return err
	}

	machines, err := a.directory.ListMachines(ctx)

	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATE\tDESCRIPTION")

	for _, m := range directory.FilterMachines(machines, q) {
		fmt.Fprintf(w, "%d\t%v\t%v\t%v\n", m.ID, m.Name, m.State, m.Description)
	}

	return w.Flush()
}

func (a *app) printBookings(list []booking.Booking) error {
	if len(list) == 0 {
		fmt.Fprintln(a.stdout, "No bookings.")
		return nil
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTIME\tACTIVITY\tTRAINER\tCUSTOMER\tSTATUS\tMESSAGE")

	for _, b := range list {
		fmt.Fprintf(w, "%d\t%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			b.ID, b.Date, b.Time, b.MachineName, b.TrainerName, b.CustomerName, b.Status, b.Message)
	}

	return w.Flush()
}
