package chat

import (
	"strconv"
	"strings"
)

// Button data is "<action>:<id>". Telegram caps callback data at 64 bytes,
// so payloads carry numeric ids rather than names.
const buttonSep = ":"

// Review actions attached to registration alerts.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

func ButtonData(action string, id int64) string {
	return action + buttonSep + strconv.FormatInt(id, 10)
}

// ParseButtonData splits data produced by ButtonData. Data without a
// numeric id (e.g. "confirm_yes") comes back whole as the action, with
// hasID false.
func ParseButtonData(data string) (action string, id int64, hasID bool) {
	action, rawID, found := strings.Cut(data, buttonSep)
	if !found {
		return data, 0, false
	}
	n, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return data, 0, false
	}
	return action, n, true
}
