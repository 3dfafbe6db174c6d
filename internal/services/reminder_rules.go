package services

import (
	"fmt"
	"sort"

	"billtracker/internal/core"
)

// ReminderRule decides whether an unpaid bill deserves a reminder today.
// Each rule owns one kind of reminder and the notification for it.
type ReminderRule interface {
	Name() string
	Matches(b core.Bill, today core.Date) bool
	Notification(bills []core.Bill) core.Notification
}

// OverdueRule matches unpaid bills whose due date has passed.
type OverdueRule struct{}

func (OverdueRule) Name() string { return "overdue" }

func (OverdueRule) Matches(b core.Bill, today core.Date) bool {
	return b.IsOverdue(today)
}

func (OverdueRule) Notification(bills []core.Bill) core.Notification {
	return core.Notification{
		Title:    "Overdue",
		Message:  countMessage(bills, "is overdue", "are overdue"),
		Severity: core.SeverityWarning,
	}
}

// DueTodayRule matches unpaid bills due on today's date.
type DueTodayRule struct{}

func (DueTodayRule) Name() string { return "due_today" }

func (DueTodayRule) Matches(b core.Bill, today core.Date) bool {
	return !b.IsPaid && b.DueDate.Equal(today.Time)
}

func (DueTodayRule) Notification(bills []core.Bill) core.Notification {
	return core.Notification{
		Title:    "Due today",
		Message:  countMessage(bills, "is due today", "are due today"),
		Severity: core.SeverityInfo,
	}
}

// DueSoonRule matches unpaid bills due after today and within Days days.
type DueSoonRule struct {
	Days int
}

func (DueSoonRule) Name() string { return "due_soon" }

func (r DueSoonRule) Matches(b core.Bill, today core.Date) bool {
	if b.IsPaid || !today.Before(b.DueDate) {
		return false
	}
	return !today.AddDays(r.Days).Before(b.DueDate)
}

func (r DueSoonRule) Notification(bills []core.Bill) core.Notification {
	return core.Notification{
		Title:    "Coming up",
		Message:  countMessage(bills, fmt.Sprintf("is due within %d days", r.Days), fmt.Sprintf("are due within %d days", r.Days)),
		Severity: core.SeverityInfo,
	}
}

func countMessage(bills []core.Bill, one, many string) string {
	if len(bills) == 1 {
		return fmt.Sprintf("%s %s.", bills[0].Name, one)
	}
	return fmt.Sprintf("%d bills %s.", len(bills), many)
}

// reminderRules maps rule names to their implementation.
var reminderRules = map[string]ReminderRule{
	OverdueRule{}.Name():  OverdueRule{},
	DueTodayRule{}.Name(): DueTodayRule{},
	DueSoonRule{}.Name():  DueSoonRule{Days: 3},
}

// GetReminderRule returns the rule registered under name.
func GetReminderRule(name string) (ReminderRule, error) {
	rule, ok := reminderRules[name]
	if !ok {
		return nil, fmt.Errorf("unknown reminder rule: %s", name)
	}
	return rule, nil
}

// RegisterReminderRule adds or replaces a rule, e.g. a DueSoonRule with a
// different window.
func RegisterReminderRule(rule ReminderRule) {
	reminderRules[rule.Name()] = rule
}

// ReminderRuleNames lists the registered rules in name order.
func ReminderRuleNames() []string {
	names := make([]string, 0, len(reminderRules))
	for name := range reminderRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
