package schedule

import "errors"

var ErrBusy = errors.New("another request is in progress")

var ErrNoDetail = errors.New("no booking is open")

var ErrNoPrompt = errors.New("action was not started")

var ErrActionNotAllowed = errors.New("action not allowed for this booking")
