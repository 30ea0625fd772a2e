package booking

import (
	"cmp"
	"slices"
)

type Status string

const (
	StatusMarked    Status = "marked"
	StatusReserved  Status = "reserved"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Booking struct {
	ID           int64  `json:"schedule_id"`
	Date         string `json:"dt_init"`
	Time         string `json:"tm_init"`
	TrainerID    int64  `json:"trainer_id"`
	TrainerName  string `json:"trainer_name,omitempty"`
	CustomerID   int64  `json:"customer_id"`
	CustomerName string `json:"customer_name,omitempty"`
	MachineID    int64  `json:"machine_id"`
	MachineName  string `json:"machine_name,omitempty"`
	Message      string `json:"message"`
	Status       Status `json:"c_status"`
}

// ByDate maps a YYYY-MM-DD date to its bookings in server order.
type ByDate map[string][]Booking

// GroupByDate buckets bookings by date, keeping the relative order of the
// input inside each bucket.
func GroupByDate(bookings []Booking) ByDate {
	grouped := ByDate{}

	for _, b := range bookings {
		grouped[b.Date] = append(grouped[b.Date], b)
	}

	return grouped
}

// Dates returns the bucket keys in ascending order.
func (g ByDate) Dates() []string {
	dates := make([]string, 0, len(g))

	for date := range g {
		dates = append(dates, date)
	}

	slices.Sort(dates)

	return dates
}

// Flatten concatenates the buckets in ascending date order.
func (g ByDate) Flatten() []Booking {
	flat := []Booking{}

	for _, date := range g.Dates() {
		flat = append(flat, g[date]...)
	}

	return flat
}

func (g ByDate) Find(id int64) (Booking, bool) {
	for _, bookings := range g {
		for _, b := range bookings {
			if b.ID == id {
				return b, true
			}
		}
	}

	return Booking{}, false
}

// Upcoming returns at most limit bookings dated today or later, ordered by
// date then time. today is a YYYY-MM-DD string.
func Upcoming(g ByDate, today string, limit int) []Booking {
	upcoming := []Booking{}

	for _, date := range g.Dates() {
		if date >= today {
			upcoming = append(upcoming, g[date]...)
		}
	}

	slices.SortStableFunc(upcoming, func(a, b Booking) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.Time, b.Time))
	})

	if limit >= 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}

	return upcoming
}
