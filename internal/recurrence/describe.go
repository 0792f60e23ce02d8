package recurrence

import "fmt"

// Describe returns a human-readable description of a day interval.
func Describe(intervalDays int) string {
	switch {
	case intervalDays < 1:
		return ""
	case intervalDays == 1:
		return "Repeats daily"
	case intervalDays == 7:
		return "Repeats weekly"
	case intervalDays%7 == 0:
		return fmt.Sprintf("Repeats every %d weeks", intervalDays/7)
	}
	return fmt.Sprintf("Repeats every %d days", intervalDays)
}
