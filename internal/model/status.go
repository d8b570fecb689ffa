package model

import (
	"fmt"
	"strings"
)

// Status has two canonical values. The historical "已确认" literal means the
// same thing as "待开始" and is folded into it on ingestion.
type Status string

const (
	StatusPending     Status = "待开始"
	StatusUnconfirmed Status = "未确认"

	statusConfirmedLegacy Status = "已确认"
)

var Statuses = []Status{StatusPending, StatusUnconfirmed}

func ParseStatus(s string) (Status, error) {
	switch Status(strings.TrimSpace(s)) {
	case StatusPending, statusConfirmedLegacy:
		return StatusPending, nil
	case StatusUnconfirmed:
		return StatusUnconfirmed, nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "confirmed":
		return StatusPending, nil
	case "unconfirmed":
		return StatusUnconfirmed, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTask, s)
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusUnconfirmed
}

// Display returns the label shown and counted for s.
func (s Status) Display() string {
	if s == statusConfirmedLegacy {
		return string(StatusPending)
	}
	return string(s)
}

func (s Status) StringLocalized() string {
	switch s.Display() {
	case string(StatusPending):
		return "pending"
	case string(StatusUnconfirmed):
		return "unconfirmed"
	default:
		return "unknown"
	}
}
