package config

type BookingStatus string

const (
	Pending   BookingStatus = "PENDING"
	Approved  BookingStatus = "APPROVED"
	Rejected  BookingStatus = "REJECTED"
	Cancelled BookingStatus = "CANCELLED"
)

type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdays = map[Weekday]int{
	Sunday:    0,
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
}

func (d Weekday) IsValid() bool {
	_, ok := weekdays[d]
	return ok
}

// Order ranks d from Monday (0) to Sunday (6); unknown days sort last.
func (d Weekday) Order() int {
	n, ok := weekdays[d]
	if !ok {
		return len(weekdays)
	}
	return (n + 6) % 7
}

// WeekdayOf maps a time.Weekday number (Sunday = 0) to its Weekday name.
func WeekdayOf(day int) Weekday {
	for name, n := range weekdays {
		if n == day {
			return name
		}
	}
	return ""
}

type Role string

const (
	RoleUser       Role = "USER"
	RoleOrgAdmin   Role = "ORG_ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:       1,
	RoleOrgAdmin:   2,
	RoleSuperAdmin: 3,
}

func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants every permission of required.
func (r Role) AtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required] && roleRank[r] > 0
}

type NotificationType string

const (
	NotificationInfo    NotificationType = "INFO"
	NotificationSuccess NotificationType = "SUCCESS"
	NotificationWarning NotificationType = "WARNING"
)
