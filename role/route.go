package role

// Route identifies the tab set a signed-in user lands on.
type Route string

const (
	RouteLogin   Route = "login"
	RouteUser    Route = "(user)"
	RouteTrainer Route = "(trainer)"
	RouteAdmin   Route = "(admin)"
)

type Tab string

const (
	TabHome        Tab = "home"
	TabNewSchedule Tab = "new_schedule"
	TabPersonList  Tab = "person_list"
	TabMachineList Tab = "machine_list"
)

func RouteFor(r Role) Route {
	switch r.Name {
	case Admin:
		return RouteAdmin
	case Trainer:
		return RouteTrainer
	default:
		return RouteUser
	}
}

func Tabs(route Route) []Tab {
	switch route {
	case RouteAdmin:
		return []Tab{TabHome, TabNewSchedule, TabPersonList, TabMachineList}
	case RouteTrainer:
		return []Tab{TabHome, TabNewSchedule}
	case RouteUser:
		return []Tab{TabHome}
	default:
		return nil
	}
}
