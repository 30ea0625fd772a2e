package booking

import "github.com/Almirante-Ming/Rose/validate"

// Input is the payload of a new booking.
type Input struct {
	Date       string `json:"dt_init" validate:"required,datetime=2006-01-02"`
	Time       string `json:"tm_init" validate:"required,datetime=15:04"`
	TrainerID  int64  `json:"trainer_id" validate:"required,gt=0"`
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	MachineID  int64  `json:"machine_id" validate:"required,gt=0"`
	Message    string `json:"message" validate:"max=500"`
	Status     Status `json:"c_status"`
}

func (in Input) Validate() error {
	return validate.Struct(in)
}

type update struct {
	Date       string `json:"dt_init"`
	Time       string `json:"tm_init"`
	TrainerID  int64  `json:"trainer_id"`
	CustomerID int64  `json:"customer_id"`
	MachineID  int64  `json:"machine_id"`
	Message    string `json:"message"`
	Status     Status `json:"c_status"`
}

func updateOf(b Booking) update {
	return update{
		Date:       b.Date,
		Time:       b.Time,
		TrainerID:  b.TrainerID,
		CustomerID: b.CustomerID,
		MachineID:  b.MachineID,
		Message:    b.Message,
		Status:     b.Status,
	}
}
