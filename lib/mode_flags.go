package lib

import (
	"fmt"
	"strings"
)

// Mode is the task covint has been asked to perform.
type Mode int
const (
	HelpMode Mode = iota
	CheckMode
	RunMode
	ReduceMode
	ConvertMode
)

var modeNames = []string{ "help", "check", "run", "reduce", "convert" }

func (m Mode) String() string { return modeNames[m] }

// ParseMode converts the name of a mode to a Mode.
func ParseMode(name string) (Mode, error) {
	for i := range modeNames {
		if modeNames[i] == name { return Mode(i), nil }
	}
	return 0, fmt.Errorf("you attempted to run covint in the mode '%s', but "+
		"the only valid modes are %s", name, strings.Join(modeNames, ", "))
}

// CheckStrictness indicates how functions related to the "check" covint mode
// should behave when it encounters an error.
type CheckStrictness int
const (
	CrashOnError CheckStrictness = iota
	WarnOnError
)

// ParseCheckStrictness converts "crash" or "warn" to a CheckStrictness.
func ParseCheckStrictness(name string) (CheckStrictness, error) {
	switch strings.ToLower(name) {
	case "crash", "": return CrashOnError, nil
	case "warn": return WarnOnError, nil
	}
	return 0, fmt.Errorf("CheckStrictness must be 'crash' or 'warn', got "+
		"'%s'", name)
}
