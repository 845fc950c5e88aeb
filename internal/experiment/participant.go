package experiment

import (
	"fmt"
	"strconv"
	"strings"
)

// Sex is the participant's self-reported sex.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
	SexOther  Sex = "OTHER"
)

// ParseSex accepts the full name or its first letter, in any case.
func ParseSex(s string) (Sex, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return SexMale, nil
	case "F", "FEMALE":
		return SexFemale, nil
	case "O", "OTHER":
		return SexOther, nil
	default:
		return "", fmt.Errorf("unknown sex %q (want male, female or other)", s)
	}
}

// MaxAge bounds Participant.Age.
const MaxAge = 150

// Participant identifies the person taking part in a run.
type Participant struct {
	ID  string `json:"id" yaml:"id"`
	Age int    `json:"age" yaml:"age"`
	Sex Sex    `json:"sex" yaml:"sex"`
}

// Code returns the participant code used to label results: ID, sex and age
// concatenated, e.g. "P07FEMALE23".
func (p Participant) Code() string {
	return p.ID + string(p.Sex) + strconv.Itoa(p.Age)
}

// Validate checks that the participant has an ID, a plausible age and a
// known sex.
func (p Participant) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("participant id is required")
	}
	if p.Age < 0 || p.Age > MaxAge {
		return fmt.Errorf("participant age %d out of range 0..%d", p.Age, MaxAge)
	}
	switch p.Sex {
	case SexMale, SexFemale, SexOther:
	default:
		return fmt.Errorf("participant sex %q is not one of MALE, FEMALE, OTHER", p.Sex)
	}
	return nil
}
